package review

import (
	"fmt"
	"math"
	"slices"

	"github.com/sendrec/framereview/internal/validate"
)

type Tool string

const (
	ToolFreehand  Tool = "freehand"
	ToolArrow     Tool = "arrow"
	ToolEllipse   Tool = "ellipse"
	ToolRectangle Tool = "rectangle"
	ToolText      Tool = "text"
)

var Tools = []Tool{ToolFreehand, ToolArrow, ToolEllipse, ToolRectangle, ToolText}

var Palette = []string{
	"#ef4444",
	"#f97316",
	"#eab308",
	"#22c55e",
	"#3b82f6",
	"#a855f7",
	"#ffffff",
}

var StrokeWidths = []float64{1, 2, 3, 5, 8}

const (
	DefaultTool        = ToolFreehand
	DefaultColor       = "#ef4444"
	DefaultStrokeWidth = 5.0

	maxShapePoints = 20000

	// MaxCoordinate bounds shape coordinates and sizes in canvas space.
	MaxCoordinate = 4 * 8192
	MaxFontSize   = 512.0
)

// Shape is one vector drawing in canvas coordinates. Points holds flat
// x,y pairs for freehand strokes and arrows.
type Shape struct {
	Type        Tool      `json:"type"`
	X           float64   `json:"x,omitempty"`
	Y           float64   `json:"y,omitempty"`
	Width       float64   `json:"width,omitempty"`
	Height      float64   `json:"height,omitempty"`
	Points      []float64 `json:"points,omitempty"`
	Text        string    `json:"text,omitempty"`
	FontSize    float64   `json:"fontSize,omitempty"`
	Color       string    `json:"color"`
	StrokeWidth float64   `json:"strokeWidth"`
}

func validTool(t Tool) bool {
	return slices.Contains(Tools, t)
}

func validColor(c string) bool {
	return slices.Contains(Palette, c)
}

func validStrokeWidth(w float64) bool {
	return slices.Contains(StrokeWidths, w)
}

func (s Shape) Validate() error {
	if !validTool(s.Type) {
		return fmt.Errorf("unknown shape type %q", s.Type)
	}
	if !validColor(s.Color) {
		return fmt.Errorf("color %q is not in the palette", s.Color)
	}
	if !validStrokeWidth(s.StrokeWidth) {
		return fmt.Errorf("stroke width %v is not a preset", s.StrokeWidth)
	}
	for _, v := range []float64{s.X, s.Y, s.Width, s.Height, s.FontSize} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("shape has a non-finite coordinate")
		}
		if math.Abs(v) > MaxCoordinate {
			return fmt.Errorf("shape coordinate %v is out of range", v)
		}
	}
	if s.FontSize < 0 || s.FontSize > MaxFontSize {
		return fmt.Errorf("font size %v is out of range", s.FontSize)
	}
	if len(s.Points)%2 != 0 {
		return fmt.Errorf("points must be x,y pairs")
	}
	if len(s.Points)/2 > maxShapePoints {
		return fmt.Errorf("shape has more than %d points", maxShapePoints)
	}
	for _, v := range s.Points {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("shape has a non-finite point")
		}
		if math.Abs(v) > MaxCoordinate {
			return fmt.Errorf("shape point %v is out of range", v)
		}
	}
	switch s.Type {
	case ToolFreehand, ToolArrow:
		if len(s.Points) < 4 {
			return fmt.Errorf("%s needs at least two points", s.Type)
		}
	case ToolText:
		if s.Text == "" {
			return fmt.Errorf("text shape needs text")
		}
		if msg := validate.AnnotationText(s.Text); msg != "" {
			return fmt.Errorf("%s", msg)
		}
	}
	return nil
}
