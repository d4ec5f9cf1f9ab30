package review

import (
	"context"
	"slices"
	"testing"
	"time"
)

func TestResolve_NoCandidates(t *testing.T) {
	p := NewResolver(&fakeSigner{}, time.Hour).Resolve(context.Background(), nil)

	if p.Available() || p.Source != SourceUnavailable {
		t.Fatalf("expected unavailable, got %+v", p)
	}
	if p.Message != "No movie is attached to this version yet." {
		t.Errorf("unexpected message %q", p.Message)
	}
}

func TestResolve_DirectURLShortCircuits(t *testing.T) {
	signer := &fakeSigner{}
	candidates := []string{"HTTPS://cdn.example.com/a.mp4", "versions/a.mp4"}

	p := NewResolver(signer, time.Hour).Resolve(context.Background(), candidates)

	if p.URL != candidates[0] || p.Source != SourceDirect {
		t.Errorf("expected direct URL, got %+v", p)
	}
	if len(signer.single) != 0 {
		t.Errorf("expected no signing, got %v", signer.single)
	}
}

func TestResolve_FirstSignedSuccessWins(t *testing.T) {
	signer := &fakeSigner{fail: map[string]bool{"versions/a.mp4": true}}
	candidates := []string{"versions/a.mp4", "versions/a.webm", "versions/a.mov"}

	p := NewResolver(signer, time.Hour).Resolve(context.Background(), candidates)

	if p.URL != "https://signed.test/versions/a.webm" || p.Source != SourceSigned || p.Locator != "versions/a.webm" {
		t.Errorf("expected second candidate signed, got %+v", p)
	}
	if !slices.Equal(signer.single, []string{"versions/a.mp4", "versions/a.webm"}) {
		t.Errorf("expected signing to stop after first success, got %v", signer.single)
	}
}

func TestResolve_LaterDirectURLAfterFailedSigning(t *testing.T) {
	signer := &fakeSigner{fail: map[string]bool{"versions/a.mp4": true}}
	candidates := []string{"versions/a.mp4", "http://cdn.example.com/a.mp4"}

	p := NewResolver(signer, time.Hour).Resolve(context.Background(), candidates)

	if p.Source != SourceDirect || p.URL != "http://cdn.example.com/a.mp4" {
		t.Errorf("expected direct fallback, got %+v", p)
	}
}

func TestResolve_AllFail(t *testing.T) {
	signer := &fakeSigner{fail: map[string]bool{"a": true, "b": true}}

	p := NewResolver(signer, time.Hour).Resolve(context.Background(), []string{"a", "b"})

	if p.Available() {
		t.Fatalf("expected no URL, got %+v", p)
	}
	if p.Message != "Unable to resolve a playable URL for this version." {
		t.Errorf("unexpected message %q", p.Message)
	}
}

func TestNewMediaItem_OrdersAndTrimsCandidates(t *testing.T) {
	fps := 25.0
	blank := "  "
	path, mp4, url := "versions/a.mov", " versions/a.mp4 ", "https://cdn.example.com/a.mp4"

	item := newMediaItem("m1", "SH010", &fps, 24, &path, &mp4, nil, &blank, &url)

	want := []string{"versions/a.mov", "versions/a.mp4", "https://cdn.example.com/a.mp4"}
	if !slices.Equal(item.Candidates, want) {
		t.Errorf("expected %v, got %v", want, item.Candidates)
	}
	if item.FrameRate != 25 {
		t.Errorf("expected frame rate 25, got %v", item.FrameRate)
	}

	fallback := newMediaItem("m2", "", nil, 24)
	if fallback.FrameRate != 24 || len(fallback.Candidates) != 0 {
		t.Errorf("expected default fps and no candidates, got %+v", fallback)
	}
}
