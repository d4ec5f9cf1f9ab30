package review

import (
	"context"
	"log/slog"
)

type FrameReader interface {
	ListFrameAnnotations(ctx context.Context, mediaItemID string, frame int) ([]Shape, error)
}

// FrameStore reads the committed shapes of one frame.
type FrameStore struct {
	reader FrameReader
}

func NewFrameStore(reader FrameReader) *FrameStore {
	return &FrameStore{reader: reader}
}

// Load returns the active shapes for the frame. A failed read is logged and
// yields no shapes.
func (s *FrameStore) Load(ctx context.Context, mediaItemID string, frame int) []Shape {
	shapes, err := s.reader.ListFrameAnnotations(ctx, mediaItemID, frame)
	if err != nil {
		slog.Error("frames: failed to load frame annotations", "media_item_id", mediaItemID, "frame", frame, "error", err)
		return []Shape{}
	}
	if shapes == nil {
		shapes = []Shape{}
	}
	return shapes
}
