package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sendrec/framereview/internal/storage"
)

var errBackend = errors.New("backend unavailable")

// fakeStore is an in-memory stand-in for PgRepository.
type fakeStore struct {
	mu sync.Mutex

	items       map[string]MediaItem
	comments    []Comment
	annotations []AnnotationRecord
	attachments []CommentAttachment
	authors     map[string]Author
	frameShapes map[int][]Shape

	getMediaErr       error
	commentErr        error
	annotationErrAt   int // 1-based; 0 disables
	attachmentErr     error
	frameErr          error
	listCommentsErr   error
	frameHook         func(frame int)
	beforeComment     func()
	beforeAttachment  func()
	afterListComments func()
	frameCalls        []int
	listCommentCalls  int
	nextID            int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:       map[string]MediaItem{},
		authors:     map[string]Author{},
		frameShapes: map[int][]Shape{},
	}
}

// id hands out sequential UUID-shaped ids, matching the uuid columns.
func (f *fakeStore) id() string {
	f.nextID++
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", f.nextID)
}

func (f *fakeStore) GetMediaItem(ctx context.Context, id string) (MediaItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getMediaErr != nil {
		return MediaItem{}, f.getMediaErr
	}
	item, ok := f.items[id]
	if !ok {
		return MediaItem{}, ErrMediaNotFound
	}
	return item, nil
}

func (f *fakeStore) CreateComment(ctx context.Context, mediaItemID, authorID, content string) (Comment, error) {
	if f.beforeComment != nil {
		f.beforeComment()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return Comment{}, f.commentErr
	}
	c := Comment{
		ID:          f.id(),
		MediaItemID: mediaItemID,
		AuthorID:    authorID,
		Content:     content,
		CreatedAt:   time.Date(2026, 3, 1, 12, 0, len(f.comments), 0, time.UTC),
	}
	f.comments = append(f.comments, c)
	return c, nil
}

func (f *fakeStore) CreateAnnotation(ctx context.Context, rec AnnotationRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.annotationErrAt > 0 && len(f.annotations)+1 == f.annotationErrAt {
		return "", errBackend
	}
	f.annotations = append(f.annotations, rec)
	f.frameShapes[rec.FrameNumber] = append(f.frameShapes[rec.FrameNumber], rec.Shape)
	return f.id(), nil
}

func (f *fakeStore) CreateAttachment(ctx context.Context, att CommentAttachment, createdBy string) (CommentAttachment, error) {
	if f.beforeAttachment != nil {
		f.beforeAttachment()
	}
	if err := ctx.Err(); err != nil {
		return CommentAttachment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachmentErr != nil {
		return CommentAttachment{}, f.attachmentErr
	}
	att.ID = f.id()
	f.attachments = append(f.attachments, att)
	return att, nil
}

func (f *fakeStore) ListFrameAnnotations(ctx context.Context, mediaItemID string, frame int) ([]Shape, error) {
	f.mu.Lock()
	f.frameCalls = append(f.frameCalls, frame)
	hook := f.frameHook
	err := f.frameErr
	shapes := append([]Shape(nil), f.frameShapes[frame]...)
	f.mu.Unlock()

	if hook != nil {
		hook(frame)
	}
	if err != nil {
		return nil, err
	}
	return shapes, nil
}

func (f *fakeStore) ListComments(ctx context.Context, mediaItemID string, limit int) ([]Comment, error) {
	f.mu.Lock()
	f.listCommentCalls++
	if f.listCommentsErr != nil {
		f.mu.Unlock()
		return nil, f.listCommentsErr
	}
	var out []Comment
	for i := len(f.comments) - 1; i >= 0 && len(out) < limit; i-- {
		if f.comments[i].MediaItemID == mediaItemID {
			out = append(out, f.comments[i])
		}
	}
	hook := f.afterListComments
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return out, nil
}

func (f *fakeStore) ListAnnotationAnchors(ctx context.Context, mediaItemID string, commentIDs []string) ([]AnnotationAnchor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []AnnotationAnchor
	for _, a := range f.annotations {
		for _, id := range commentIDs {
			if a.CommentID == id {
				out = append(out, AnnotationAnchor{CommentID: id, FrameNumber: a.FrameNumber, Timecode: a.Timecode})
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ListAuthors(ctx context.Context, ids []string) ([]Author, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Author
	for _, id := range ids {
		if a, ok := f.authors[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAttachments(ctx context.Context, commentIDs []string) ([]CommentAttachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []CommentAttachment
	for _, a := range f.attachments {
		for _, id := range commentIDs {
			if a.CommentID == id {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) frameLoads() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.frameCalls...)
}

// fakeObjects records uploads and deletes.
type fakeObjects struct {
	mu        sync.Mutex
	uploadErr error
	deleteErr error
	uploads   []string
	deletes   []string
}

func (f *fakeObjects) UploadObject(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, key)
	return f.uploadErr
}

func (f *fakeObjects) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.deletes = append(f.deletes, key)
	return f.deleteErr
}

// fakeSigner signs keys as https://signed.test/<key> unless listed in fail.
type fakeSigner struct {
	mu         sync.Mutex
	fail       map[string]bool
	batchErr   error
	afterSign  func()
	single     []string
	batchCalls int
	batchKeys  [][]string
}

func (f *fakeSigner) GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	f.mu.Lock()
	f.single = append(f.single, key)
	url, err := "https://signed.test/"+key, error(nil)
	if f.fail[key] {
		url, err = "", errBackend
	}
	hook := f.afterSign
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return url, err
}

func (f *fakeSigner) GenerateDownloadURLs(ctx context.Context, keys []string, expiry time.Duration) ([]storage.SignedURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	f.batchKeys = append(f.batchKeys, append([]string(nil), keys...))
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	out := make([]storage.SignedURL, 0, len(keys))
	for _, k := range keys {
		if f.fail[k] {
			out = append(out, storage.SignedURL{Path: k, Err: errBackend})
			continue
		}
		out = append(out, storage.SignedURL{Path: k, URL: "https://signed.test/" + k})
	}
	return out, nil
}

type fakeCompositor struct {
	mu    sync.Mutex
	err   error
	image []byte
	reqs  []CompositeRequest
}

func (f *fakeCompositor) ExportComposite(ctx context.Context, req CompositeRequest) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.image == nil {
		return []byte("png"), nil
	}
	return f.image, nil
}

func rect(x float64) Shape {
	return Shape{Type: ToolRectangle, X: x, Y: 10, Width: 40, Height: 30, Color: DefaultColor, StrokeWidth: DefaultStrokeWidth}
}
