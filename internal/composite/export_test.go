package composite

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"slices"
	"testing"

	"github.com/sendrec/framereview/internal/review"
)

var gray = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}

type fakeGrabber struct {
	width, height int
	err           error
	calls         int
	source        string
	at            float64
}

func (f *fakeGrabber) Grab(ctx context.Context, source string, at float64) (image.Image, error) {
	f.calls++
	f.source, f.at = source, at
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, f.width, f.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(gray), image.Point{}, draw.Src)
	return img, nil
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestExportComposite_NoShapesExportsNothing(t *testing.T) {
	grabber := &fakeGrabber{width: 64, height: 36}
	out, err := NewExporter(grabber).ExportComposite(context.Background(), review.CompositeRequest{Source: "https://cdn.example.com/a.mp4"})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != nil {
		t.Errorf("expected no image, got %d bytes", len(out))
	}
	if grabber.calls != 0 {
		t.Errorf("expected no frame grab, got %d", grabber.calls)
	}
}

func TestExportComposite_DrawsRectangleOverFrame(t *testing.T) {
	grabber := &fakeGrabber{width: 640, height: 360}
	req := review.CompositeRequest{
		Source: "https://cdn.example.com/a.mp4",
		Time:   2.5,
		Canvas: review.CanvasSize{Width: 640, Height: 360},
		Shapes: []review.Shape{{
			Type: review.ToolRectangle, X: 100, Y: 100, Width: 200, Height: 100,
			Color: "#ef4444", StrokeWidth: 8,
		}},
	}

	out, err := NewExporter(grabber).ExportComposite(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grabber.source != req.Source || grabber.at != 2.5 {
		t.Errorf("expected grab of %q at 2.5, got %q at %v", req.Source, grabber.source, grabber.at)
	}

	img := decodePNG(t, out)
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 360 {
		t.Fatalf("expected frame-sized output, got %v", img.Bounds())
	}
	if got := rgbaAt(img, 100, 150); got != (color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}) {
		t.Errorf("expected stroke color on the left edge, got %v", got)
	}
	if got := rgbaAt(img, 500, 300); got != gray {
		t.Errorf("expected untouched background, got %v", got)
	}
	inside := rgbaAt(img, 200, 150)
	if inside == gray || inside.R >= 0xef {
		t.Errorf("expected a faint fill inside the rectangle, got %v", inside)
	}
}

func TestExportComposite_ScalesCanvasToFrame(t *testing.T) {
	grabber := &fakeGrabber{width: 320, height: 180}
	req := review.CompositeRequest{
		Source: "frame.mp4",
		Canvas: review.CanvasSize{Width: 640, Height: 360},
		Shapes: []review.Shape{{
			Type: review.ToolFreehand, Points: []float64{0, 200, 640, 200},
			Color: "#3b82f6", StrokeWidth: 8,
		}},
	}

	out, err := NewExporter(grabber).ExportComposite(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := decodePNG(t, out)
	if got := rgbaAt(img, 160, 100); got != (color.RGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}) {
		t.Errorf("expected stroke at scaled y=100, got %v", got)
	}
	if got := rgbaAt(img, 160, 120); got != gray {
		t.Errorf("expected background away from the stroke, got %v", got)
	}
}

func TestExportComposite_DrawsTextArrowAndEllipse(t *testing.T) {
	grabber := &fakeGrabber{width: 400, height: 300}
	req := review.CompositeRequest{
		Source: "frame.mp4",
		Canvas: review.CanvasSize{Width: 400, Height: 300},
		Shapes: []review.Shape{
			{Type: review.ToolText, Text: "FIX", X: 20, Y: 60, FontSize: 26, Color: "#ffffff", StrokeWidth: 2},
			{Type: review.ToolArrow, Points: []float64{200, 50, 300, 50}, Color: "#22c55e", StrokeWidth: 3},
			{Type: review.ToolEllipse, X: 100, Y: 150, Width: 100, Height: 100, Color: "#eab308", StrokeWidth: 5},
		},
	}

	out, err := NewExporter(grabber).ExportComposite(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := decodePNG(t, out)

	changed := func(r image.Rectangle) bool {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				if rgbaAt(img, x, y) != gray {
					return true
				}
			}
		}
		return false
	}
	if !changed(image.Rect(20, 34, 80, 66)) {
		t.Error("expected text pixels near the baseline")
	}
	if got := rgbaAt(img, 250, 50); got != (color.RGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}) {
		t.Errorf("expected arrow shaft color, got %v", got)
	}
	if got := rgbaAt(img, 150, 150); got != (color.RGBA{R: 0xea, G: 0xb3, B: 0x08, A: 0xff}) {
		t.Errorf("expected ellipse top edge color, got %v", got)
	}
	if got := rgbaAt(img, 150, 200); got != gray {
		t.Errorf("expected ellipse interior untouched, got %v", got)
	}
}

func TestExportComposite_WithoutSourceUsesBackdrop(t *testing.T) {
	grabber := &fakeGrabber{width: 640, height: 360}
	req := review.CompositeRequest{
		Canvas: review.CanvasSize{Width: 200, Height: 100},
		Shapes: []review.Shape{{Type: review.ToolRectangle, X: 10, Y: 10, Width: 50, Height: 50, Color: "#ffffff", StrokeWidth: 2}},
	}

	out, err := NewExporter(grabber).ExportComposite(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if grabber.calls != 0 {
		t.Errorf("expected no frame grab without a source, got %d", grabber.calls)
	}
	img := decodePNG(t, out)
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 100 {
		t.Errorf("expected canvas-sized output, got %v", img.Bounds())
	}
	if got := rgbaAt(img, 150, 80); got != backdrop {
		t.Errorf("expected backdrop color, got %v", got)
	}
}

func TestExportComposite_GrabFailureIsReturned(t *testing.T) {
	grabber := &fakeGrabber{err: errors.New("ffmpeg: exit status 1")}
	req := review.CompositeRequest{
		Source: "frame.mp4",
		Shapes: []review.Shape{{Type: review.ToolRectangle, Width: 5, Height: 5, Color: "#ffffff", StrokeWidth: 1}},
	}

	_, err := NewExporter(grabber).ExportComposite(context.Background(), req)
	if err == nil {
		t.Fatal("expected error from grabber")
	}
}

func TestGrabArgs(t *testing.T) {
	args := grabArgs("https://cdn.example.com/v.mp4?sig=1", 1.25)

	want := []string{"-ss", "1.250", "-i", "https://cdn.example.com/v.mp4?sig=1", "-frames:v", "1"}
	for i := 0; i+1 < len(want); i += 2 {
		idx := slices.Index(args, want[i])
		if idx < 0 || idx+1 >= len(args) || args[idx+1] != want[i+1] {
			t.Errorf("expected %s %s in %v", want[i], want[i+1], args)
		}
	}
	if args[len(args)-1] != "pipe:1" {
		t.Errorf("expected output to stdout, got %q", args[len(args)-1])
	}
	if got := grabArgs("x", -3); got[slices.Index(got, "-ss")+1] != "0.000" {
		t.Errorf("expected negative time to clamp to 0, got %v", got)
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#ef4444", color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}, false},
		{"#fff", color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, false},
		{"ef4444", color.RGBA{}, true},
		{"#zzzzzz", color.RGBA{}, true},
		{"#1234", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := parseHexColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: expected error=%v, got %v", tt.in, tt.wantErr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestPainter_ClipsFarOffscreenStroke(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 64, 36))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(gray), image.Point{}, draw.Src)
	p := newPainter(dst, review.CanvasSize{Width: 64, Height: 36})

	err := p.shape(review.Shape{Type: review.ToolFreehand, Points: []float64{0, 0, 1e10, 1e10}, Color: "#ffffff", StrokeWidth: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rgbaAt(dst, 10, 10); got == gray {
		t.Error("expected the visible part of the stroke to be drawn")
	}
	if got := rgbaAt(dst, 50, 5); got != gray {
		t.Errorf("expected pixels off the stroke untouched, got %v", got)
	}
}

func TestPainter_SegmentEntirelyOutsideIsSkipped(t *testing.T) {
	dst := image.NewRGBA(image.Rect(0, 0, 32, 32))
	p := newPainter(dst, review.CanvasSize{Width: 32, Height: 32})

	p.segment(-1e9, -500, 1e9, -500, 2)

	if !p.dirty.Empty() {
		t.Errorf("expected nothing stamped, dirty=%v", p.dirty)
	}
}

func TestExportComposite_SkipsOutOfRangeShape(t *testing.T) {
	grabber := &fakeGrabber{width: 64, height: 36}
	req := review.CompositeRequest{
		Source: "frame.mp4",
		Canvas: review.CanvasSize{Width: 64, Height: 36},
		Shapes: []review.Shape{
			{Type: review.ToolFreehand, Points: []float64{0, 0, 1e10, 1e10}, Color: "#ffffff", StrokeWidth: 1},
			{Type: review.ToolEllipse, X: -1e9, Y: -1e9, Width: 2e9, Height: 2e9, Color: "#ffffff", StrokeWidth: 1},
			{Type: review.ToolRectangle, X: 40, Y: 10, Width: 10, Height: 10, Color: "#ef4444", StrokeWidth: 2},
		},
	}

	out, err := NewExporter(grabber).ExportComposite(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img := decodePNG(t, out)
	if got := rgbaAt(img, 10, 10); got != gray {
		t.Errorf("expected the out-of-range stroke to be skipped, got %v", got)
	}
	if got := rgbaAt(img, 40, 15); got != (color.RGBA{R: 0xef, G: 0x44, B: 0x44, A: 0xff}) {
		t.Errorf("expected the valid rectangle to be drawn, got %v", got)
	}
}

func TestExportComposite_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := review.CompositeRequest{
		Canvas: review.CanvasSize{Width: 64, Height: 36},
		Shapes: []review.Shape{{Type: review.ToolRectangle, Width: 5, Height: 5, Color: "#ffffff", StrokeWidth: 1}},
	}

	_, err := NewExporter(nil).ExportComposite(ctx, req)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
