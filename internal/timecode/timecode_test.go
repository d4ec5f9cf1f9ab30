package timecode

import (
	"fmt"
	"math"
	"testing"
)

func TestTimeToFrame(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		fps     float64
		want    int
	}{
		{"zero", 0, 24, 1},
		{"just before second frame", 0.04, 24, 1},
		{"one second", 1, 24, 25},
		{"negative clamps", -3, 24, 1},
		{"nan clamps", math.NaN(), 24, 1},
		{"inf clamps", math.Inf(1), 24, 1},
		{"invalid fps falls back to 24", 1, 0, 25},
		{"ntsc", 10, 29.97, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TimeToFrame(tt.seconds, tt.fps); got != tt.want {
				t.Errorf("TimeToFrame(%v, %v) = %d, want %d", tt.seconds, tt.fps, got, tt.want)
			}
		})
	}
}

func TestFrameToTime(t *testing.T) {
	if got := FrameToTime(1, 24); got != 0 {
		t.Errorf("frame 1 should start at 0, got %v", got)
	}
	if got := FrameToTime(25, 24); got != 1 {
		t.Errorf("frame 25 should start at 1s, got %v", got)
	}
	if got := FrameToTime(0, 24); got != 0 {
		t.Errorf("frame 0 should clamp to 0, got %v", got)
	}
	if got := FrameToTime(-5, 24); got != 0 {
		t.Errorf("negative frame should clamp to 0, got %v", got)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	for _, fps := range []float64{23.976, 24, 25, 29.97, 30, 48, 59.94, 60, 120} {
		for frame := 1; frame <= 5000; frame++ {
			if got := TimeToFrame(FrameToTime(frame, fps), fps); got != frame {
				t.Fatalf("fps %v: round trip of frame %d gave %d", fps, frame, got)
			}
		}
	}
}

func TestFrameBoundaryTolerance(t *testing.T) {
	for _, fps := range []float64{24, 25, 29.97, 60} {
		for i := 0; i < 2000; i++ {
			seconds := float64(i) * 0.0137
			back := FrameToTime(TimeToFrame(seconds, fps), fps)
			if back > seconds+1/fps {
				t.Fatalf("fps %v: time %v mapped back to %v", fps, seconds, back)
			}
		}
	}
}

func TestTotalFrames(t *testing.T) {
	if got := TotalFrames(10, 24); got != 240 {
		t.Errorf("expected 240, got %d", got)
	}
	if got := TotalFrames(0, 24); got != 1 {
		t.Errorf("expected minimum of 1, got %d", got)
	}
	if got := TotalFrames(math.NaN(), 24); got != 1 {
		t.Errorf("expected 1 for NaN duration, got %d", got)
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		seconds float64
		fps     float64
		want    string
	}{
		{0, 24, "00:00:00:00"},
		{3661.5, 24, "01:01:01:12"},
		{59.999, 24, "00:00:59:23"},
		{-1, 24, "00:00:00:00"},
		{math.Inf(1), 24, "00:00:00:00"},
		{36000, 25, "10:00:00:00"},
	}
	for _, tt := range tests {
		if got := Format(tt.seconds, tt.fps); got != tt.want {
			t.Errorf("Format(%v, %v) = %q, want %q", tt.seconds, tt.fps, got, tt.want)
		}
	}
}

func TestFormatFrame(t *testing.T) {
	tests := []struct {
		frame int
		fps   float64
		want  string
	}{
		{49, 24, "00:00:02:00"},
		{42, 24, "00:00:01:17"},
		{1, 24, "00:00:00:00"},
		{24, 24, "00:00:00:23"},
		{30, 29.97, "00:00:00:29"},
	}
	for _, tt := range tests {
		if got := FormatFrame(tt.frame, tt.fps); got != tt.want {
			t.Errorf("FormatFrame(%d, %v) = %q, want %q", tt.frame, tt.fps, got, tt.want)
		}
	}
}

func TestFormatFrameMatchesTimeToFrame(t *testing.T) {
	for frame := 1; frame <= 24*60; frame++ {
		tc := FormatFrame(frame, 24)
		back := TimeToFrame(FrameToTime(frame, 24), 24)
		if back != frame {
			t.Fatalf("frame %d round-tripped to %d (%s)", frame, back, tc)
		}
		var h, m, s, f int
		if _, err := fmt.Sscanf(tc, "%02d:%02d:%02d:%02d", &h, &m, &s, &f); err != nil {
			t.Fatalf("parse %q: %v", tc, err)
		}
		if got := (h*3600+m*60+s)*24 + f + 1; got != frame {
			t.Fatalf("timecode %s encodes frame %d, want %d", tc, got, frame)
		}
	}
}

func TestNormalizeFrameRate(t *testing.T) {
	if got := NormalizeFrameRate(25, 24); got != 25 {
		t.Errorf("expected 25, got %v", got)
	}
	if got := NormalizeFrameRate(-1, 30); got != 30 {
		t.Errorf("expected fallback 30, got %v", got)
	}
	if got := NormalizeFrameRate(math.NaN(), 0); got != DefaultFrameRate {
		t.Errorf("expected default, got %v", got)
	}
}
