package review

import (
	"context"
	"math"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sendrec/framereview/internal/metrics"
	"github.com/sendrec/framereview/internal/timecode"
	"github.com/sendrec/framereview/internal/validate"
)

// Deps are the collaborators a Workspace sequences.
type Deps struct {
	Resolver  *Resolver
	Frames    *FrameStore
	Thread    *ThreadLoader
	Committer *Committer
	Metrics   *metrics.Review
	Canvas    CanvasSize
}

// Workspace is one reviewer's session on one media item. It owns the pending
// shapes, composer text and loaded thread. Backend calls run without the lock
// held; results for a frame, playback resolution or thread load that has
// since been superseded are dropped.
type Workspace struct {
	item     MediaItem
	authorID string
	deps     Deps

	mu             sync.Mutex
	closed         bool
	playback       Playback
	playbackGen    uint64
	capture        *Capture
	currentTime    float64
	currentFrame   int
	duration       float64
	totalFrames    int
	committed      []Shape
	committedFrame int
	comments       []ResolvedComment
	commentsLoaded bool
	threadGen      uint64
	text           string
	saving         bool
	lastError      string
	canvas         CanvasSize
}

func NewWorkspace(item MediaItem, authorID string, deps Deps) *Workspace {
	canvas := deps.Canvas
	if canvas.Width <= 0 || canvas.Height <= 0 {
		canvas = CanvasSize{Width: 1920, Height: 1080}
	}
	return &Workspace{
		item:         item,
		authorID:     authorID,
		deps:         deps,
		capture:      NewCapture(),
		currentFrame: 1,
		committed:    []Shape{},
		comments:     []ResolvedComment{},
		canvas:       canvas,
	}
}

func (w *Workspace) MediaItem() MediaItem {
	return w.item
}

// Open resolves playback and loads frame 1 and the thread concurrently.
func (w *Workspace) Open(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error {
		w.ResolvePlayback(ctx)
		return nil
	})
	g.Go(func() error {
		w.loadFrame(ctx, 1, false)
		return nil
	})
	g.Go(func() error {
		w.ReloadThread(ctx)
		return nil
	})
	_ = g.Wait()
}

// Close discards all session-local state.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.capture.Clear()
	w.committed = []Shape{}
	w.comments = []ResolvedComment{}
	w.text = ""
}

// ResolvePlayback re-runs source resolution. Only the newest run may update state.
func (w *Workspace) ResolvePlayback(ctx context.Context) {
	w.mu.Lock()
	w.playbackGen++
	gen := w.playbackGen
	w.playback = Playback{}
	w.mu.Unlock()

	p := w.deps.Resolver.Resolve(ctx, w.item.Candidates)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || gen != w.playbackGen {
		w.deps.Metrics.StaleResult("playback")
		return
	}
	w.playback = p
	w.deps.Metrics.PlaybackResolution(string(p.Source))
}

func (w *Workspace) Play() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.capture.SetPlaying(true)
}

func (w *Workspace) Pause() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.capture.SetPlaying(false)
}

// SetDuration records the clip length reported by the player.
func (w *Workspace) SetDuration(seconds float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.duration = sanitizeSeconds(seconds)
	w.totalFrames = timecode.TotalFrames(w.duration, w.item.FrameRate)
}

// Seek moves the playhead to a time, from scrubbing or playback progress.
// Landing on a different frame discards pending shapes and loads the new
// frame's committed shapes.
func (w *Workspace) Seek(ctx context.Context, seconds float64) {
	w.mu.Lock()
	t := sanitizeSeconds(seconds)
	if w.duration > 0 && t > w.duration {
		t = w.duration
	}
	frame := timecode.TimeToFrame(t, w.item.FrameRate)
	if w.totalFrames > 0 && frame > w.totalFrames {
		frame = w.totalFrames
	}
	w.currentTime = t
	changed := frame != w.currentFrame
	if changed {
		w.enterFrameLocked(frame)
	}
	w.mu.Unlock()

	if changed {
		w.loadFrame(ctx, frame, false)
	}
}

// SeekToFrame jumps to the start of a frame, clamped to the clip once its
// length is known. Pending shapes are always discarded.
func (w *Workspace) SeekToFrame(ctx context.Context, frame int) {
	w.mu.Lock()
	frame = max(frame, 1)
	if w.totalFrames > 0 {
		frame = min(frame, w.totalFrames)
	}
	w.currentTime = timecode.FrameToTime(frame, w.item.FrameRate)
	w.enterFrameLocked(frame)
	w.mu.Unlock()

	w.loadFrame(ctx, frame, false)
}

func (w *Workspace) enterFrameLocked(frame int) {
	if frame != w.currentFrame {
		w.committed = []Shape{}
		w.committedFrame = 0
	}
	w.currentFrame = frame
	w.capture.Clear()
}

// JumpToComment seeks to the frame a comment is anchored to. It reports
// false without seeking when the comment has no frame.
func (w *Workspace) JumpToComment(ctx context.Context, commentID string) (bool, error) {
	w.mu.Lock()
	var frame *int
	found := false
	for _, c := range w.comments {
		if c.ID == commentID {
			frame, found = c.FrameNumber, true
			break
		}
	}
	w.mu.Unlock()

	if !found {
		return false, ErrCommentNotFound
	}
	if frame == nil {
		return false, nil
	}
	w.SeekToFrame(ctx, *frame)
	return true, nil
}

func (w *Workspace) SetCapturing(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.capture.SetCapturing(on)
}

// SetToolSettings updates whichever of tool, color and stroke width are set.
func (w *Workspace) SetToolSettings(tool Tool, color string, strokeWidth float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if tool != "" {
		if err := w.capture.SetTool(tool); err != nil {
			return err
		}
	}
	if color != "" {
		if err := w.capture.SetColor(color); err != nil {
			return err
		}
	}
	if strokeWidth != 0 {
		if err := w.capture.SetStrokeWidth(strokeWidth); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) SetCanvasSize(width, height int) error {
	if width <= 0 || height <= 0 || width > 8192 || height > 8192 {
		return validationError("canvas size %dx%d is out of range", width, height)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.canvas = CanvasSize{Width: width, Height: height}
	return nil
}

func (w *Workspace) AddShape(s Shape) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.capture.Append(s)
}

func (w *Workspace) Undo() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.capture.Undo()
}

func (w *Workspace) ClearPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.capture.Clear()
}

func (w *Workspace) SetText(text string) error {
	if msg := validate.CommentBody(strings.TrimSpace(text)); msg != "" {
		return validationError("%s", msg)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.text = text
	return nil
}

// Save commits the composer. Only one save runs at a time. On success the
// saved shapes and text are cleared and the frame and thread are reloaded;
// shapes drawn and text typed while the save ran are kept, and capture turns
// off once nothing is left pending. On failure everything is kept for a retry.
func (w *Workspace) Save(ctx context.Context) (SaveResult, error) {
	w.mu.Lock()
	if w.saving {
		w.mu.Unlock()
		return SaveResult{}, ErrSaveInProgress
	}
	pending := w.capture.MarkInFlight()
	overlay := make([]Shape, 0, len(w.committed)+len(pending))
	overlay = append(overlay, w.committed...)
	overlay = append(overlay, pending...)
	req := SaveRequest{
		MediaItemID: w.item.ID,
		AuthorID:    w.authorID,
		Text:        w.text,
		Shapes:      pending,
		Overlay:     overlay,
		Frame:       w.currentFrame,
		Time:        w.currentTime,
		FrameRate:   w.item.FrameRate,
		Source:      w.playback.URL,
		Canvas:      w.canvas,
	}
	w.saving = true
	w.lastError = ""
	w.mu.Unlock()

	result, err := w.deps.Committer.Save(ctx, req)

	w.mu.Lock()
	w.saving = false
	if err != nil {
		w.capture.SettleInFlight(false)
		w.lastError = Message(err)
		w.mu.Unlock()
		return SaveResult{}, err
	}
	w.capture.SettleInFlight(true)
	if w.capture.PendingCount() == 0 {
		w.capture.SetCapturing(false)
	}
	if w.text == req.Text {
		w.text = ""
	}
	frame := w.currentFrame
	w.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		w.loadFrame(ctx, frame, true)
		return nil
	})
	g.Go(func() error {
		w.ReloadThread(ctx)
		return nil
	})
	_ = g.Wait()

	return result, nil
}

func (w *Workspace) loadFrame(ctx context.Context, frame int, force bool) {
	w.mu.Lock()
	if w.closed || (!force && w.committedFrame == frame) {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	shapes := w.deps.Frames.Load(ctx, w.item.ID, frame)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.currentFrame != frame {
		w.deps.Metrics.StaleResult("frame")
		return
	}
	w.committed = shapes
	w.committedFrame = frame
}

// ReloadThread reloads the comment thread; a newer reload wins.
func (w *Workspace) ReloadThread(ctx context.Context) {
	w.mu.Lock()
	w.threadGen++
	gen := w.threadGen
	w.mu.Unlock()

	comments := w.deps.Thread.Load(ctx, w.item.ID)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || gen != w.threadGen {
		w.deps.Metrics.StaleResult("thread")
		return
	}
	w.comments = comments
	w.commentsLoaded = true
}

// View is a point-in-time copy of the workspace for rendering.
type View struct {
	MediaItemID    string            `json:"mediaItemId"`
	Code           string            `json:"code"`
	FrameRate      float64           `json:"frameRate"`
	Playback       Playback          `json:"playback"`
	CaptureState   CaptureState      `json:"captureState"`
	Playing        bool              `json:"playing"`
	Tool           Tool              `json:"tool"`
	Color          string            `json:"color"`
	StrokeWidth    float64           `json:"strokeWidth"`
	CurrentTime    float64           `json:"currentTime"`
	CurrentFrame   int               `json:"currentFrame"`
	Timecode       string            `json:"timecode"`
	Duration       float64           `json:"duration"`
	TotalFrames    int               `json:"totalFrames"`
	Pending        []Shape           `json:"pending"`
	Committed      []Shape           `json:"committed"`
	Comments       []ResolvedComment `json:"comments"`
	CommentsLoaded bool              `json:"commentsLoaded"`
	Text           string            `json:"text"`
	Saving         bool              `json:"saving"`
	CanSave        bool              `json:"canSave"`
	LastError      string            `json:"lastError,omitempty"`
	Canvas         CanvasSize        `json:"canvas"`
}

func (w *Workspace) Snapshot() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	committed := make([]Shape, len(w.committed))
	copy(committed, w.committed)
	comments := make([]ResolvedComment, len(w.comments))
	copy(comments, w.comments)

	return View{
		MediaItemID:    w.item.ID,
		Code:           w.item.Code,
		FrameRate:      w.item.FrameRate,
		Playback:       w.playback,
		CaptureState:   w.capture.State(),
		Playing:        w.capture.Playing(),
		Tool:           w.capture.Tool(),
		Color:          w.capture.Color(),
		StrokeWidth:    w.capture.StrokeWidth(),
		CurrentTime:    w.currentTime,
		CurrentFrame:   w.currentFrame,
		Timecode:       timecode.Format(w.currentTime, w.item.FrameRate),
		Duration:       w.duration,
		TotalFrames:    w.totalFrames,
		Pending:        w.capture.Pending(),
		Committed:      committed,
		Comments:       comments,
		CommentsLoaded: w.commentsLoaded,
		Text:           w.text,
		Saving:         w.saving,
		CanSave:        !w.saving && (strings.TrimSpace(w.text) != "" || w.capture.PendingCount() > 0),
		LastError:      w.lastError,
		Canvas:         w.canvas,
	}
}

func sanitizeSeconds(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
