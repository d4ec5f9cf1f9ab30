// Package timecode converts between continuous playback time, 1-based frame
// numbers and HH:MM:SS:FF timecode strings. Non-finite or negative inputs are
// treated as zero; nothing here returns an error.
package timecode

import (
	"fmt"
	"math"
)

const DefaultFrameRate = 24.0

// NormalizeFrameRate returns fps when it is finite and positive, otherwise fallback.
func NormalizeFrameRate(fps, fallback float64) float64 {
	if finite(fps) && fps > 0 {
		return fps
	}
	if finite(fallback) && fallback > 0 {
		return fallback
	}
	return DefaultFrameRate
}

// TimeToFrame maps a playback time in seconds to its frame: floor(t*fps)+1, never below 1.
func TimeToFrame(seconds, fps float64) int {
	t := clamp(seconds)
	fps = NormalizeFrameRate(fps, DefaultFrameRate)
	// Frame starts are k/fps; the epsilon keeps exact boundaries from rounding down.
	f := math.Floor(t*fps+1e-9) + 1
	if f < 1 {
		return 1
	}
	return int(f)
}

// FrameToTime returns the start time of a frame: max(frame-1, 0)/fps.
func FrameToTime(frame int, fps float64) float64 {
	fps = NormalizeFrameRate(fps, DefaultFrameRate)
	return float64(max(frame-1, 0)) / fps
}

// TotalFrames is max(floor(duration*fps), 1).
func TotalFrames(duration, fps float64) int {
	fps = NormalizeFrameRate(fps, DefaultFrameRate)
	return max(int(math.Floor(clamp(duration)*fps)), 1)
}

// Format renders a time as HH:MM:SS:FF where FF is floor(fractional seconds * fps).
func Format(seconds, fps float64) string {
	t := clamp(seconds)
	fps = NormalizeFrameRate(fps, DefaultFrameRate)

	whole := math.Floor(t)
	total := int64(whole)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	f := int64(math.Floor((t-whole)*fps + 1e-9))
	if limit := int64(math.Ceil(fps)) - 1; f > limit {
		f = limit
	}

	return fmt.Sprintf("%02d:%02d:%02d:%02d", h, m, s, f)
}

// FormatFrame renders the timecode of a frame's start time.
func FormatFrame(frame int, fps float64) string {
	return Format(FrameToTime(frame, fps), fps)
}

func clamp(v float64) float64 {
	if !finite(v) || v < 0 {
		return 0
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
