package composite

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/sendrec/framereview/internal/review"
)

const (
	arrowHeadLength = 12.0
	rectFillAlpha   = 0x15
	defaultFontSize = 16.0
	maxEllipseSteps = 8192
)

// painter strokes shapes into a coverage mask, then composites the mask onto
// dst in the shape's color. Overlapping stamps within one shape take the max
// coverage so strokes do not darken where they cross.
type painter struct {
	dst    *image.RGBA
	mask   *image.Alpha
	dirty  image.Rectangle
	sx, sy float64
	scale  float64
}

func newPainter(dst *image.RGBA, canvas review.CanvasSize) *painter {
	b := dst.Bounds()
	sx := float64(b.Dx()) / float64(canvas.Width)
	sy := float64(b.Dy()) / float64(canvas.Height)
	return &painter{
		dst:   dst,
		mask:  image.NewAlpha(b),
		sx:    sx,
		sy:    sy,
		scale: (sx + sy) / 2,
	}
}

func (p *painter) shape(s review.Shape) error {
	c, err := parseHexColor(s.Color)
	if err != nil {
		return err
	}
	radius := math.Max(s.StrokeWidth*p.scale, 1) / 2

	switch s.Type {
	case review.ToolFreehand:
		p.polyline(s.Points, radius)
	case review.ToolArrow:
		if len(s.Points) < 4 {
			return fmt.Errorf("arrow needs two points")
		}
		n := len(s.Points)
		p.arrow(s.Points[0], s.Points[1], s.Points[n-2], s.Points[n-1], radius)
	case review.ToolRectangle:
		p.fillRect(s.X, s.Y, s.Width, s.Height, c)
		p.rect(s.X, s.Y, s.Width, s.Height, radius)
	case review.ToolEllipse:
		p.ellipse(s.X, s.Y, s.Width, s.Height, radius)
	case review.ToolText:
		p.text(s.Text, s.X, s.Y, s.FontSize)
	default:
		return fmt.Errorf("unsupported shape type %q", s.Type)
	}
	p.flush(c)
	return nil
}

func (p *painter) point(x, y float64) (float64, float64) {
	return x * p.sx, y * p.sy
}

func (p *painter) polyline(points []float64, radius float64) {
	if len(points) < 2 {
		return
	}
	px, py := p.point(points[0], points[1])
	p.disc(px, py, radius)
	for i := 2; i+1 < len(points); i += 2 {
		x, y := p.point(points[i], points[i+1])
		p.segment(px, py, x, y, radius)
		px, py = x, y
	}
}

func (p *painter) arrow(x1, y1, x2, y2, radius float64) {
	ax, ay := p.point(x1, y1)
	bx, by := p.point(x2, y2)
	p.segment(ax, ay, bx, by, radius)

	angle := math.Atan2(by-ay, bx-ax)
	head := arrowHeadLength * p.scale
	for _, side := range []float64{-math.Pi / 6, math.Pi / 6} {
		hx := bx - head*math.Cos(angle+side)
		hy := by - head*math.Sin(angle+side)
		p.segment(bx, by, hx, hy, radius)
	}
}

func (p *painter) rect(x, y, w, h, radius float64) {
	x0, y0 := p.point(x, y)
	x1, y1 := p.point(x+w, y+h)
	p.segment(x0, y0, x1, y0, radius)
	p.segment(x1, y0, x1, y1, radius)
	p.segment(x1, y1, x0, y1, radius)
	p.segment(x0, y1, x0, y0, radius)
}

func (p *painter) fillRect(x, y, w, h float64, c color.RGBA) {
	x0, y0 := p.point(x, y)
	x1, y1 := p.point(x+w, y+h)
	r := image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1))).
		Canon().Intersect(p.dst.Bounds())
	if r.Empty() {
		return
	}
	draw.DrawMask(p.dst, r, image.NewUniform(c), image.Point{}, image.NewUniform(color.Alpha{A: rectFillAlpha}), image.Point{}, draw.Over)
}

func (p *painter) ellipse(x, y, w, h, radius float64) {
	cx, cy := p.point(x+w/2, y+h/2)
	rx, ry := math.Abs(w/2)*p.sx, math.Abs(h/2)*p.sy
	if rx == 0 && ry == 0 {
		p.disc(cx, cy, radius)
		return
	}
	// Ramanujan's approximation, sampled about every 2px.
	perimeter := math.Pi * (3*(rx+ry) - math.Sqrt((3*rx+ry)*(rx+3*ry)))
	steps := min(max(int(perimeter/2), 24), maxEllipseSteps)
	px, py := cx+rx, cy
	for i := 1; i <= steps; i++ {
		t := 2 * math.Pi * float64(i) / float64(steps)
		nx, ny := cx+rx*math.Cos(t), cy+ry*math.Sin(t)
		p.segment(px, py, nx, ny, radius)
		px, py = nx, ny
	}
}

// text draws s with its baseline-left corner at x,y using the 7x13 bitmap
// face scaled to the requested size.
func (p *painter) text(s string, x, y, size float64) {
	if s == "" {
		return
	}
	if size <= 0 {
		size = defaultFontSize
	}
	face := basicfont.Face7x13
	metrics := face.Metrics()
	width := font.MeasureString(face, s).Ceil()
	height := metrics.Height.Ceil()
	if width <= 0 || height <= 0 {
		return
	}

	glyphs := image.NewAlpha(image.Rect(0, 0, width, height))
	d := font.Drawer{
		Dst:  glyphs,
		Src:  image.Opaque,
		Face: face,
		Dot:  fixed.P(0, metrics.Ascent.Ceil()),
	}
	d.DrawString(s)

	k := size * p.scale / float64(height)
	bx, by := p.point(x, y)
	top := by - float64(metrics.Ascent.Ceil())*k
	target := image.Rect(
		int(math.Round(bx)),
		int(math.Round(top)),
		int(math.Round(bx+float64(width)*k)),
		int(math.Round(top+float64(height)*k)),
	)
	clipped := target.Intersect(p.mask.Bounds())
	if clipped.Empty() {
		return
	}
	xdraw.ApproxBiLinear.Scale(p.mask, target, glyphs, glyphs.Bounds(), draw.Over, nil)
	p.dirty = p.dirty.Union(clipped)
}

func (p *painter) segment(x0, y0, x1, y1, radius float64) {
	x0, y0, x1, y1, ok := p.clip(x0, y0, x1, y1, radius+2)
	if !ok {
		return
	}
	dist := math.Hypot(x1-x0, y1-y0)
	step := math.Max(radius/2, 0.5)
	steps := int(math.Ceil(dist / step))
	if steps == 0 {
		p.disc(x0, y0, radius)
		return
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		p.disc(x0+(x1-x0)*t, y0+(y1-y0)*t, radius)
	}
}

// clip trims a segment to the mask bounds grown by margin (Liang-Barsky).
// It reports false when nothing of the segment is near the mask.
func (p *painter) clip(x0, y0, x1, y1, margin float64) (float64, float64, float64, float64, bool) {
	b := p.mask.Bounds()
	minX, minY := float64(b.Min.X)-margin, float64(b.Min.Y)-margin
	maxX, maxY := float64(b.Max.X)+margin, float64(b.Max.Y)+margin
	dx, dy := x1-x0, y1-y0
	t0, t1 := 0.0, 1.0
	for _, e := range [4][2]float64{
		{-dx, x0 - minX},
		{dx, maxX - x0},
		{-dy, y0 - minY},
		{dy, maxY - y0},
	} {
		pv, qv := e[0], e[1]
		if pv == 0 {
			if qv < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := qv / pv
		if pv < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = math.Max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = math.Min(t1, r)
		}
	}
	return x0 + t0*dx, y0 + t0*dy, x0 + t1*dx, y0 + t1*dy, true
}

// disc stamps an anti-aliased filled circle into the mask.
func (p *painter) disc(cx, cy, r float64) {
	area := image.Rect(
		int(math.Floor(cx-r-1)),
		int(math.Floor(cy-r-1)),
		int(math.Ceil(cx+r+1)),
		int(math.Ceil(cy+r+1)),
	).Intersect(p.mask.Bounds())
	if area.Empty() {
		return
	}
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			d := math.Hypot(float64(x)+0.5-cx, float64(y)+0.5-cy)
			coverage := r + 0.5 - d
			if coverage <= 0 {
				continue
			}
			a := uint8(math.Min(coverage, 1) * 0xff)
			i := p.mask.PixOffset(x, y)
			if p.mask.Pix[i] < a {
				p.mask.Pix[i] = a
			}
		}
	}
	p.dirty = p.dirty.Union(area)
}

func (p *painter) flush(c color.RGBA) {
	if p.dirty.Empty() {
		return
	}
	draw.DrawMask(p.dst, p.dirty, image.NewUniform(c), image.Point{}, p.mask, p.dirty.Min, draw.Over)
	for y := p.dirty.Min.Y; y < p.dirty.Max.Y; y++ {
		start := p.mask.PixOffset(p.dirty.Min.X, y)
		clear(p.mask.Pix[start : start+p.dirty.Dx()])
	}
	p.dirty = image.Rectangle{}
}

func parseHexColor(s string) (color.RGBA, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok {
		return color.RGBA{}, fmt.Errorf("color %q is not hex", s)
	}
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("color %q is not hex", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("color %q is not hex", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
