package review

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sendrec/framereview/internal/auth"
	"github.com/sendrec/framereview/internal/httputil"
	"github.com/sendrec/framereview/internal/validate"
)

type Handler struct {
	sessions *Sessions
}

func NewHandler(sessions *Sessions) *Handler {
	return &Handler{sessions: sessions}
}

// Routes mounts the workspace endpoints. Callers add authentication.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Open)
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Close)
		r.Post("/play", h.Play)
		r.Post("/pause", h.Pause)
		r.Post("/seek", h.Seek)
		r.Post("/time", h.Seek)
		r.Post("/frame", h.SeekFrame)
		r.Post("/duration", h.Duration)
		r.Post("/playback/refresh", h.RefreshPlayback)
		r.Post("/capture", h.Capture)
		r.Put("/tool", h.Tool)
		r.Put("/canvas", h.Canvas)
		r.Post("/shapes", h.AddShape)
		r.Post("/undo", h.Undo)
		r.Post("/clear", h.Clear)
		r.Put("/text", h.Text)
		r.Post("/save", h.Save)
		r.Post("/comments/refresh", h.RefreshComments)
		r.Post("/comments/{commentID}/jump", h.Jump)
	})
}

type openRequest struct {
	MediaItemID string `json:"mediaItemId"`
}

type openResponse struct {
	SessionID string `json:"sessionId"`
	Workspace View   `json:"workspace"`
}

type timeRequest struct {
	Time *float64 `json:"time"`
}

type frameRequest struct {
	Frame int `json:"frame"`
}

type durationRequest struct {
	Seconds float64 `json:"seconds"`
}

type captureRequest struct {
	Enabled bool `json:"enabled"`
}

type toolRequest struct {
	Tool        Tool    `json:"tool"`
	Color       string  `json:"color"`
	StrokeWidth float64 `json:"strokeWidth"`
}

type shapeRequest struct {
	Shape *Shape `json:"shape"`
}

type textRequest struct {
	Text string `json:"text"`
}

type attachmentResponse struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
	StoragePath string `json:"storagePath"`
	FileSize    int64  `json:"fileSize"`
}

type saveResponse struct {
	CommentID       string              `json:"commentId"`
	AnnotationIDs   []string            `json:"annotationIds"`
	Attachment      *attachmentResponse `json:"attachment,omitempty"`
	AttachmentError string              `json:"attachmentError,omitempty"`
	Workspace       View                `json:"workspace"`
}

type undoResponse struct {
	Undone    bool `json:"undone"`
	Workspace View `json:"workspace"`
}

type jumpResponse struct {
	Seeked    bool `json:"seeked"`
	Workspace View `json:"workspace"`
}

func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if msg := validate.UUID(req.MediaItemID, "mediaItemId"); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	id, ws, err := h.sessions.Open(r.Context(), req.MediaItemID, auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeReviewError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, openResponse{SessionID: id, Workspace: ws.Snapshot()})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ws.Snapshot())
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if err := h.sessions.Close(id, auth.UserIDFromContext(r.Context())); err != nil {
		writeReviewError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(_ context.Context, ws *Workspace) error {
		ws.Play()
		return nil
	})
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(_ context.Context, ws *Workspace) error {
		ws.Pause()
		return nil
	})
}

// Seek serves both explicit scrubbing and playback progress reports.
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	var req timeRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Time == nil {
		httputil.WriteError(w, http.StatusBadRequest, "time is required")
		return
	}
	h.apply(w, r, func(ctx context.Context, ws *Workspace) error {
		ws.Seek(ctx, *req.Time)
		return nil
	})
}

func (h *Handler) SeekFrame(w http.ResponseWriter, r *http.Request) {
	var req frameRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.apply(w, r, func(ctx context.Context, ws *Workspace) error {
		ws.SeekToFrame(ctx, req.Frame)
		return nil
	})
}

func (h *Handler) Duration(w http.ResponseWriter, r *http.Request) {
	var req durationRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.apply(w, r, func(_ context.Context, ws *Workspace) error {
		ws.SetDuration(req.Seconds)
		return nil
	})
}

func (h *Handler) RefreshPlayback(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(ctx context.Context, ws *Workspace) error {
		ws.ResolvePlayback(ctx)
		return nil
	})
}

func (h *Handler) Capture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.apply(w, r, func(_ context.Context, ws *Workspace) error {
		ws.SetCapturing(req.Enabled)
		return nil
	})
}

func (h *Handler) Tool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.apply(w, r, func(_ context.Context, ws *Workspace) error {
		return ws.SetToolSettings(req.Tool, req.Color, req.StrokeWidth)
	})
}

func (h *Handler) Canvas(w http.ResponseWriter, r *http.Request) {
	var req CanvasSize
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.apply(w, r, func(_ context.Context, ws *Workspace) error {
		return ws.SetCanvasSize(req.Width, req.Height)
	})
}

func (h *Handler) AddShape(w http.ResponseWriter, r *http.Request) {
	var req shapeRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Shape == nil {
		httputil.WriteError(w, http.StatusBadRequest, "shape is required")
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.AddShape(*req.Shape); err != nil {
		writeReviewError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ws.Snapshot())
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	undone := ws.Undo()
	httputil.WriteJSON(w, http.StatusOK, undoResponse{Undone: undone, Workspace: ws.Snapshot()})
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(_ context.Context, ws *Workspace) error {
		ws.ClearPending()
		return nil
	})
}

func (h *Handler) Text(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.apply(w, r, func(_ context.Context, ws *Workspace) error {
		return ws.SetText(req.Text)
	})
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	result, err := ws.Save(r.Context())
	if err != nil {
		writeReviewError(w, err)
		return
	}

	resp := saveResponse{
		CommentID:     result.Comment.ID,
		AnnotationIDs: result.AnnotationIDs,
		Workspace:     ws.Snapshot(),
	}
	if resp.AnnotationIDs == nil {
		resp.AnnotationIDs = []string{}
	}
	if a := result.Attachment; a != nil {
		resp.Attachment = &attachmentResponse{
			ID:          a.ID,
			FileName:    a.FileName,
			FileType:    a.FileType,
			StoragePath: a.StoragePath,
			FileSize:    a.FileSize,
		}
	}
	if result.AttachmentErr != nil {
		resp.AttachmentError = "the annotated frame image could not be attached"
	}
	httputil.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) RefreshComments(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(ctx context.Context, ws *Workspace) error {
		ws.ReloadThread(ctx)
		return nil
	})
}

func (h *Handler) Jump(w http.ResponseWriter, r *http.Request) {
	commentID := chi.URLParam(r, "commentID")
	if msg := validate.UUID(commentID, "commentId"); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	seeked, err := ws.JumpToComment(r.Context(), commentID)
	if err != nil {
		writeReviewError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, jumpResponse{Seeked: seeked, Workspace: ws.Snapshot()})
}

func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	ws, err := h.sessions.Get(chi.URLParam(r, "sessionID"), auth.UserIDFromContext(r.Context()))
	if err != nil {
		writeReviewError(w, err)
		return nil, false
	}
	return ws, true
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, fn func(context.Context, *Workspace) error) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), ws); err != nil {
		writeReviewError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ws.Snapshot())
}

func writeReviewError(w http.ResponseWriter, err error) {
	var re *Error
	if !errors.As(err, &re) {
		slog.Error("review: unexpected error", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "something went wrong")
		return
	}

	status := http.StatusInternalServerError
	switch re.Kind {
	case KindValidation:
		status = http.StatusBadRequest
	case KindBusy, KindCapture:
		status = http.StatusConflict
	case KindNotFound:
		status = http.StatusNotFound
	case KindWrite:
		status = http.StatusBadGateway
	case KindUnavailable:
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		slog.Error("review: request failed", "kind", re.Kind, "error", err)
	}
	httputil.WriteError(w, status, re.Message)
}
