package composite

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"time"
)

// FrameGrabber decodes the single video frame shown at a playback time.
type FrameGrabber interface {
	Grab(ctx context.Context, source string, at float64) (image.Image, error)
}

// FFmpeg grabs frames by piping one PNG out of an ffmpeg process. Sources may
// be local paths or signed URLs.
type FFmpeg struct {
	path    string
	timeout time.Duration
}

func NewFFmpeg(path string, timeout time.Duration) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFmpeg{path: path, timeout: timeout}
}

func (f *FFmpeg) Grab(ctx context.Context, source string, at float64) (image.Image, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.path, grabArgs(source, at)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg grab: %w: %s", err, stderr.String())
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg grab: no frame at %.3fs", at)
	}

	img, err := png.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode grabbed frame: %w", err)
	}
	return img, nil
}

func grabArgs(source string, at float64) []string {
	if at < 0 {
		at = 0
	}
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", source,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"pipe:1",
	}
}
