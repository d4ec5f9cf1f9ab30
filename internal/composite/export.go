// Package composite renders an annotated video frame: the frame under the
// playhead with the reviewer's vector shapes drawn on top, encoded as PNG.
package composite

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"

	"github.com/sendrec/framereview/internal/review"
)

var backdrop = color.RGBA{R: 0x11, G: 0x11, B: 0x11, A: 0xff}

type Exporter struct {
	grabber FrameGrabber
}

func NewExporter(grabber FrameGrabber) *Exporter {
	return &Exporter{grabber: grabber}
}

// ExportComposite draws req.Shapes over the frame at req.Time. Shapes are in
// canvas coordinates and are scaled to the frame. Without a source the shapes
// are drawn on a plain canvas-sized backdrop.
func (e *Exporter) ExportComposite(ctx context.Context, req review.CompositeRequest) ([]byte, error) {
	if len(req.Shapes) == 0 {
		return nil, nil
	}
	canvas := req.Canvas
	if canvas.Width <= 0 || canvas.Height <= 0 {
		canvas = review.CanvasSize{Width: 1920, Height: 1080}
	}

	var frame image.Image
	if req.Source != "" && e.grabber != nil {
		img, err := e.grabber.Grab(ctx, req.Source, req.Time)
		if err != nil {
			return nil, err
		}
		frame = img
	} else {
		slog.Warn("composite: no playable source, drawing annotations on blank frame")
	}

	var dst *image.RGBA
	if frame != nil {
		b := frame.Bounds()
		dst = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), frame, b.Min, draw.Src)
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
		draw.Draw(dst, dst.Bounds(), image.NewUniform(backdrop), image.Point{}, draw.Src)
	}

	p := newPainter(dst, canvas)
	for _, s := range req.Shapes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.Validate(); err != nil {
			slog.Warn("composite: skipping invalid shape", "type", s.Type, "error", err)
			continue
		}
		if err := p.shape(s); err != nil {
			slog.Warn("composite: skipping shape", "type", s.Type, "error", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode composite: %w", err)
	}
	return buf.Bytes(), nil
}
