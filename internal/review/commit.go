package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sendrec/framereview/internal/metrics"
	"github.com/sendrec/framereview/internal/timecode"
	"github.com/sendrec/framereview/internal/validate"
)

const orphanCleanupTimeout = 10 * time.Second

type CommentWriter interface {
	CreateComment(ctx context.Context, mediaItemID, authorID, content string) (Comment, error)
	CreateAnnotation(ctx context.Context, rec AnnotationRecord) (string, error)
	CreateAttachment(ctx context.Context, att CommentAttachment, createdBy string) (CommentAttachment, error)
}

type ObjectWriter interface {
	UploadObject(ctx context.Context, key string, data []byte, contentType string) error
	DeleteObject(ctx context.Context, key string) error
}

// Compositor rasterizes the video frame at Time with Shapes drawn over it.
// A nil image with a nil error means there was nothing to export.
type Compositor interface {
	ExportComposite(ctx context.Context, req CompositeRequest) ([]byte, error)
}

type CanvasSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type CompositeRequest struct {
	Source string
	Time   float64
	Canvas CanvasSize
	Shapes []Shape
}

type SaveRequest struct {
	MediaItemID string
	AuthorID    string
	Text        string
	Shapes      []Shape
	// Overlay is everything visible on the frame, committed and pending.
	Overlay   []Shape
	Frame     int
	Time      float64
	FrameRate float64
	Source    string
	Canvas    CanvasSize
}

type SaveResult struct {
	Comment       Comment
	AnnotationIDs []string
	Attachment    *CommentAttachment
	// AttachmentErr is set when the composite could not be stored. The save
	// itself still succeeded.
	AttachmentErr error
}

const compositeContentType = "image/png"

type Committer struct {
	writer     CommentWriter
	objects    ObjectWriter
	compositor Compositor
	metrics    *metrics.Review
	now        func() time.Time
}

func NewCommitter(writer CommentWriter, objects ObjectWriter, compositor Compositor, m *metrics.Review) *Committer {
	return &Committer{
		writer:     writer,
		objects:    objects,
		compositor: compositor,
		metrics:    m,
		now:        time.Now,
	}
}

// Save writes the parent comment, one annotation record per shape and, when
// shapes exist, a composite image attachment. Steps run strictly in order.
// Comment or annotation failures abort the save; attachment failures are
// logged, the uploaded object is removed if its metadata row cannot be
// written, and the save still counts as successful.
func (c *Committer) Save(ctx context.Context, req SaveRequest) (SaveResult, error) {
	text := strings.TrimSpace(req.Text)
	hasText := text != ""
	hasShapes := len(req.Shapes) > 0

	if !hasText && !hasShapes {
		c.metrics.SaveOutcome("validation")
		return SaveResult{}, ErrNothingToSave
	}
	if msg := validate.CommentBody(text); msg != "" {
		c.metrics.SaveOutcome("validation")
		return SaveResult{}, validationError("%s", msg)
	}

	content := text
	if !hasText {
		content = placeholderContent
	}

	comment, err := c.writer.CreateComment(ctx, req.MediaItemID, req.AuthorID, content)
	if err != nil {
		c.metrics.SaveOutcome("write_error")
		return SaveResult{}, &Error{Kind: KindWrite, Message: "could not save comment", Err: err}
	}
	result := SaveResult{Comment: comment}

	tc := timecode.Format(req.Time, req.FrameRate)
	var label *string
	if hasText {
		label = &text
	}
	for i, shape := range req.Shapes {
		id, err := c.writer.CreateAnnotation(ctx, AnnotationRecord{
			MediaItemID:    req.MediaItemID,
			CommentID:      comment.ID,
			AuthorID:       req.AuthorID,
			FrameNumber:    req.Frame,
			Timecode:       tc,
			Shape:          shape,
			AnnotationText: label,
		})
		if err != nil {
			c.metrics.SaveOutcome("write_error")
			return SaveResult{}, &Error{
				Kind:    KindWrite,
				Message: fmt.Sprintf("could not save annotation %d of %d", i+1, len(req.Shapes)),
				Err:     err,
			}
		}
		result.AnnotationIDs = append(result.AnnotationIDs, id)
	}

	if hasShapes {
		result.Attachment, result.AttachmentErr = c.attachComposite(ctx, comment.ID, req)
	}

	c.metrics.SaveOutcome("success")
	return result, nil
}

func (c *Committer) attachComposite(ctx context.Context, commentID string, req SaveRequest) (*CommentAttachment, error) {
	if c.compositor == nil || c.objects == nil {
		return nil, nil
	}

	overlay := req.Overlay
	if len(overlay) == 0 {
		overlay = req.Shapes
	}
	image, err := c.compositor.ExportComposite(ctx, CompositeRequest{
		Source: req.Source,
		Time:   req.Time,
		Canvas: req.Canvas,
		Shapes: overlay,
	})
	if err != nil {
		slog.Error("commit: failed to export annotated frame", "comment_id", commentID, "frame", req.Frame, "error", err)
		c.metrics.AttachmentFailure("export")
		return nil, fmt.Errorf("export composite: %w", err)
	}
	if len(image) == 0 {
		return nil, nil
	}

	fileName := fmt.Sprintf("frame-%d.png", req.Frame)
	storagePath := fmt.Sprintf("%s/%d_%s", commentID, c.now().UnixMilli(), fileName)

	if err := c.objects.UploadObject(ctx, storagePath, image, compositeContentType); err != nil {
		slog.Error("commit: failed to upload annotation frame", "comment_id", commentID, "path", storagePath, "error", err)
		c.metrics.AttachmentFailure("upload")
		return nil, fmt.Errorf("upload composite: %w", err)
	}

	att, err := c.writer.CreateAttachment(ctx, CommentAttachment{
		CommentID:   commentID,
		StoragePath: storagePath,
		FileName:    fileName,
		FileType:    compositeContentType,
		FileSize:    int64(len(image)),
	}, req.AuthorID)
	if err != nil {
		slog.Error("commit: failed to create attachment record", "comment_id", commentID, "path", storagePath, "error", err)
		c.metrics.AttachmentFailure("metadata")
		c.removeOrphan(ctx, storagePath)
		return nil, fmt.Errorf("create attachment record: %w", err)
	}
	return &att, nil
}

// removeOrphan deletes an uploaded object whose metadata row was never
// written. One attempt; failure is only logged. The attempt outlives a
// cancelled request, since a cancellation is a common reason the row failed.
func (c *Committer) removeOrphan(ctx context.Context, storagePath string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orphanCleanupTimeout)
	defer cancel()
	if err := c.objects.DeleteObject(cleanupCtx, storagePath); err != nil {
		slog.Error("commit: failed to remove orphaned upload", "path", storagePath, "error", err)
		c.metrics.OrphanCleanup("failed")
		return
	}
	c.metrics.OrphanCleanup("deleted")
}
