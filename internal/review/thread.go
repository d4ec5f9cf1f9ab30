package review

import (
	"context"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/sendrec/framereview/internal/storage"
)

type ThreadReader interface {
	ListComments(ctx context.Context, mediaItemID string, limit int) ([]Comment, error)
	ListAnnotationAnchors(ctx context.Context, mediaItemID string, commentIDs []string) ([]AnnotationAnchor, error)
	ListAuthors(ctx context.Context, authorIDs []string) ([]Author, error)
	ListAttachments(ctx context.Context, commentIDs []string) ([]CommentAttachment, error)
}

// BatchSigner signs many storage paths in one call, reporting per-path failures.
type BatchSigner interface {
	GenerateDownloadURLs(ctx context.Context, keys []string, expiry time.Duration) ([]storage.SignedURL, error)
}

var imageExtPattern = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|webp|bmp|svg)$`)

type ThreadLoader struct {
	reader   ThreadReader
	signer   BatchSigner
	ttl      time.Duration
	pageSize int
}

func NewThreadLoader(reader ThreadReader, signer BatchSigner, ttl time.Duration, pageSize int) *ThreadLoader {
	if pageSize <= 0 {
		pageSize = 100
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ThreadLoader{reader: reader, signer: signer, ttl: ttl, pageSize: pageSize}
}

// Load returns the newest page of comments for a media item, each joined with
// its author, earliest annotation anchor and signed attachments. Read
// failures are logged and degrade the result instead of failing it.
func (l *ThreadLoader) Load(ctx context.Context, mediaItemID string) []ResolvedComment {
	comments, err := l.reader.ListComments(ctx, mediaItemID, l.pageSize)
	if err != nil {
		slog.Error("thread: failed to load comments", "media_item_id", mediaItemID, "error", err)
		return []ResolvedComment{}
	}
	if len(comments) == 0 {
		return []ResolvedComment{}
	}

	commentIDs := make([]string, 0, len(comments))
	for _, c := range comments {
		commentIDs = append(commentIDs, c.ID)
	}

	anchors := l.anchorsByComment(ctx, mediaItemID, commentIDs)
	authors := l.authorLabels(ctx, comments)
	attachments := l.attachmentsByComment(ctx, mediaItemID, commentIDs)

	resolved := make([]ResolvedComment, 0, len(comments))
	for _, c := range comments {
		rc := ResolvedComment{
			ID:          c.ID,
			Content:     c.Content,
			CreatedAt:   c.CreatedAt.Format(time.RFC3339),
			AuthorName:  unknownAuthor,
			Attachments: attachments[c.ID],
		}
		if strings.TrimSpace(rc.Content) == "" {
			rc.Content = placeholderContent
		}
		if label, ok := authors[c.AuthorID]; ok && c.AuthorID != "" {
			rc.AuthorName = label
		}
		if a, ok := anchors[c.ID]; ok {
			frame, tc := a.FrameNumber, a.Timecode
			rc.FrameNumber = &frame
			rc.Timecode = &tc
		}
		if rc.Attachments == nil {
			rc.Attachments = []ResolvedAttachment{}
		}
		resolved = append(resolved, rc)
	}
	return resolved
}

func (l *ThreadLoader) anchorsByComment(ctx context.Context, mediaItemID string, commentIDs []string) map[string]AnnotationAnchor {
	out := make(map[string]AnnotationAnchor)
	rows, err := l.reader.ListAnnotationAnchors(ctx, mediaItemID, commentIDs)
	if err != nil {
		slog.Error("thread: failed to load annotation anchors", "media_item_id", mediaItemID, "error", err)
		return out
	}
	// Rows arrive oldest first; keep the first per comment.
	for _, r := range rows {
		if r.CommentID == "" || r.FrameNumber < 1 {
			continue
		}
		if _, seen := out[r.CommentID]; !seen {
			out[r.CommentID] = r
		}
	}
	return out
}

func (l *ThreadLoader) authorLabels(ctx context.Context, comments []Comment) map[string]string {
	out := make(map[string]string)
	seen := make(map[string]bool)
	var ids []string
	for _, c := range comments {
		if c.AuthorID != "" && !seen[c.AuthorID] {
			seen[c.AuthorID] = true
			ids = append(ids, c.AuthorID)
		}
	}
	if len(ids) == 0 {
		return out
	}
	authors, err := l.reader.ListAuthors(ctx, ids)
	if err != nil {
		slog.Error("thread: failed to load comment authors", "error", err)
		return out
	}
	for _, a := range authors {
		out[a.ID] = a.Label()
	}
	return out
}

// attachmentsByComment signs every distinct storage path in one batch and
// drops attachments whose path or URL is missing.
func (l *ThreadLoader) attachmentsByComment(ctx context.Context, mediaItemID string, commentIDs []string) map[string][]ResolvedAttachment {
	out := make(map[string][]ResolvedAttachment)
	rows, err := l.reader.ListAttachments(ctx, commentIDs)
	if err != nil {
		slog.Error("thread: failed to load attachments", "media_item_id", mediaItemID, "error", err)
		return out
	}
	if len(rows) == 0 {
		return out
	}

	var paths []string
	seen := make(map[string]bool)
	for _, a := range rows {
		if a.StoragePath != "" && !seen[a.StoragePath] {
			seen[a.StoragePath] = true
			paths = append(paths, a.StoragePath)
		}
	}

	signed := make(map[string]string, len(paths))
	if len(paths) > 0 && l.signer != nil {
		results, err := l.signer.GenerateDownloadURLs(ctx, paths, l.ttl)
		if err != nil {
			slog.Error("thread: failed to sign attachment URLs", "media_item_id", mediaItemID, "error", err)
		}
		for _, r := range results {
			if r.Err != nil {
				slog.Warn("thread: attachment URL not signed", "path", r.Path, "error", r.Err)
				continue
			}
			if r.URL != "" {
				signed[r.Path] = r.URL
			}
		}
	}

	for _, a := range rows {
		url := signed[a.StoragePath]
		if a.StoragePath == "" || url == "" {
			continue
		}
		name := a.FileName
		if name == "" {
			name = defaultAttachmentName
		}
		out[a.CommentID] = append(out[a.CommentID], ResolvedAttachment{
			ID:          a.ID,
			FileName:    name,
			FileType:    a.FileType,
			StoragePath: a.StoragePath,
			SignedURL:   url,
			IsImage:     isImageAttachment(a.FileType, name),
		})
	}
	return out
}

func isImageAttachment(fileType, fileName string) bool {
	if strings.HasPrefix(strings.ToLower(fileType), "image/") {
		return true
	}
	return imageExtPattern.MatchString(path.Base(fileName))
}
