package review

import (
	"context"
	"log/slog"
	"regexp"
	"time"
)

const (
	msgNoCandidates     = "No movie is attached to this version yet."
	msgNoPlayableSource = "Unable to resolve a playable URL for this version."
)

var httpURLPattern = regexp.MustCompile(`(?i)^https?://`)

// URLSigner issues a time-limited URL for one storage object.
type URLSigner interface {
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type PlaybackSource string

const (
	SourceDirect      PlaybackSource = "direct"
	SourceSigned      PlaybackSource = "signed"
	SourceUnavailable PlaybackSource = "unavailable"
)

// Playback is the outcome of resolving a media item's candidates. When URL is
// empty, Message explains why nothing can be played.
type Playback struct {
	URL     string         `json:"url,omitempty"`
	Source  PlaybackSource `json:"source"`
	Locator string         `json:"locator,omitempty"`
	Message string         `json:"message,omitempty"`
}

func (p Playback) Available() bool {
	return p.URL != ""
}

type Resolver struct {
	signer URLSigner
	ttl    time.Duration
}

func NewResolver(signer URLSigner, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Resolver{signer: signer, ttl: ttl}
}

// Resolve returns the first playable candidate. Absolute http(s) URLs are
// used as-is; anything else is signed, stopping at the first success. Failure
// is reported in the result, never as an error.
func (r *Resolver) Resolve(ctx context.Context, candidates []string) Playback {
	if len(candidates) == 0 {
		return Playback{Source: SourceUnavailable, Message: msgNoCandidates}
	}

	for _, candidate := range candidates {
		if httpURLPattern.MatchString(candidate) {
			return Playback{URL: candidate, Source: SourceDirect, Locator: candidate}
		}
		if r.signer == nil {
			continue
		}
		url, err := r.signer.GenerateDownloadURL(ctx, candidate, r.ttl)
		if err != nil || url == "" {
			slog.Warn("playback: could not sign candidate", "locator", candidate, "error", err)
			continue
		}
		return Playback{URL: url, Source: SourceSigned, Locator: candidate}
	}

	return Playback{Source: SourceUnavailable, Message: msgNoPlayableSource}
}
