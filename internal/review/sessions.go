package review

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

type MediaReader interface {
	GetMediaItem(ctx context.Context, mediaItemID string) (MediaItem, error)
}

type session struct {
	ownerID   string
	workspace *Workspace
}

// Sessions keeps open workspaces in memory, keyed by session id. Idle
// sessions expire after the TTL; every access extends it.
type Sessions struct {
	media MediaReader
	deps  Deps
	ttl   time.Duration
	cache *cache.Cache
}

func NewSessions(media MediaReader, deps Deps, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	s := &Sessions{
		media: media,
		deps:  deps,
		ttl:   ttl,
		cache: cache.New(ttl, ttl/2),
	}
	s.cache.OnEvicted(func(id string, v any) {
		if sess, ok := v.(*session); ok {
			sess.workspace.Close()
		}
		s.deps.Metrics.SetActiveSessions(s.cache.ItemCount())
		slog.Debug("sessions: review session closed", "session_id", id)
	})
	return s
}

// Open loads the media item and starts a workspace for the reviewer.
func (s *Sessions) Open(ctx context.Context, mediaItemID, reviewerID string) (string, *Workspace, error) {
	item, err := s.media.GetMediaItem(ctx, mediaItemID)
	if err != nil {
		if errors.Is(err, ErrMediaNotFound) {
			return "", nil, ErrMediaNotFound
		}
		return "", nil, &Error{Kind: KindUnavailable, Message: "could not load media item", Err: err}
	}

	ws := NewWorkspace(item, reviewerID, s.deps)
	ws.Open(ctx)

	id := uuid.NewString()
	s.cache.Set(id, &session{ownerID: reviewerID, workspace: ws}, cache.DefaultExpiration)
	s.deps.Metrics.SetActiveSessions(s.cache.ItemCount())
	slog.Info("sessions: review session opened", "session_id", id, "media_item_id", item.ID, "reviewer_id", reviewerID)
	return id, ws, nil
}

// Get returns the reviewer's workspace. Sessions owned by someone else are
// reported as missing.
func (s *Sessions) Get(id, reviewerID string) (*Workspace, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess := v.(*session)
	if sess.ownerID != reviewerID {
		return nil, ErrSessionNotFound
	}
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return sess.workspace, nil
}

func (s *Sessions) Close(id, reviewerID string) error {
	if _, err := s.Get(id, reviewerID); err != nil {
		return err
	}
	s.cache.Delete(id)
	return nil
}

func (s *Sessions) Count() int {
	return s.cache.ItemCount()
}
