package review

import (
	"strings"
	"time"

	"github.com/sendrec/framereview/internal/timecode"
)

// MediaItem is the read-only clip under review. Candidates are ordered most
// preferred first.
type MediaItem struct {
	ID         string
	Code       string
	FrameRate  float64
	Candidates []string
}

func newMediaItem(id, code string, frameRate *float64, defaultFPS float64, locators ...*string) MediaItem {
	fps := 0.0
	if frameRate != nil {
		fps = *frameRate
	}
	item := MediaItem{
		ID:        id,
		Code:      code,
		FrameRate: timecode.NormalizeFrameRate(fps, defaultFPS),
	}
	for _, l := range locators {
		if l == nil {
			continue
		}
		if v := strings.TrimSpace(*l); v != "" {
			item.Candidates = append(item.Candidates, v)
		}
	}
	return item
}

type Comment struct {
	ID          string
	MediaItemID string
	Content     string
	AuthorID    string
	CreatedAt   time.Time
}

type AnnotationRecord struct {
	MediaItemID    string
	CommentID      string
	AuthorID       string
	FrameNumber    int
	Timecode       string
	Shape          Shape
	AnnotationText *string
}

// AnnotationAnchor is the frame position of a comment's earliest annotation.
type AnnotationAnchor struct {
	CommentID   string
	FrameNumber int
	Timecode    string
}

type CommentAttachment struct {
	ID          string
	CommentID   string
	StoragePath string
	FileName    string
	FileType    string
	FileSize    int64
}

type Author struct {
	ID          string
	DisplayName *string
	FullName    *string
}

func (a Author) Label() string {
	if a.DisplayName != nil && strings.TrimSpace(*a.DisplayName) != "" {
		return *a.DisplayName
	}
	if a.FullName != nil && strings.TrimSpace(*a.FullName) != "" {
		return *a.FullName
	}
	return unknownAuthor
}

// ResolvedComment is a comment joined with its author, frame anchor and
// signed attachment URLs, ready for display.
type ResolvedComment struct {
	ID          string               `json:"id"`
	Content     string               `json:"content"`
	CreatedAt   string               `json:"createdAt"`
	AuthorName  string               `json:"authorName"`
	FrameNumber *int                 `json:"frameNumber"`
	Timecode    *string              `json:"timecode"`
	Attachments []ResolvedAttachment `json:"attachments"`
}

type ResolvedAttachment struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
	StoragePath string `json:"storagePath"`
	SignedURL   string `json:"signedUrl"`
	IsImage     bool   `json:"isImage"`
}

const (
	unknownAuthor         = "Unknown"
	placeholderContent    = "Annotation"
	defaultAttachmentName = "Attachment"
)
