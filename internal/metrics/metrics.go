// Package metrics provides Prometheus collectors for the review engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Review holds the review engine collectors. A nil *Review is valid and
// records nothing, which keeps tests and tools free of registry plumbing.
type Review struct {
	saves               *prometheus.CounterVec
	attachmentFailures  *prometheus.CounterVec
	orphanCleanups      *prometheus.CounterVec
	playbackResolutions *prometheus.CounterVec
	staleResults        *prometheus.CounterVec
	activeSessions      prometheus.Gauge
}

// NewReview creates the collectors and registers them on reg.
func NewReview(reg prometheus.Registerer) (*Review, error) {
	m := &Review{
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framereview_saves_total",
				Help: "Save attempts by outcome",
			},
			[]string{"outcome"}, // success, validation, write_error
		),
		attachmentFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framereview_attachment_failures_total",
				Help: "Composite attachment failures after a committed save",
			},
			[]string{"stage"}, // export, upload, metadata
		),
		orphanCleanups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framereview_orphan_cleanups_total",
				Help: "Deletes of uploaded composites whose metadata write failed",
			},
			[]string{"result"},
		),
		playbackResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framereview_playback_resolutions_total",
				Help: "Playback source resolutions by result",
			},
			[]string{"result"}, // direct, signed, unavailable
		),
		staleResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "framereview_stale_results_total",
				Help: "Backend results discarded because a newer request superseded them",
			},
			[]string{"kind"},
		),
		activeSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "framereview_active_sessions",
				Help: "Open review workspaces",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.saves,
		m.attachmentFailures,
		m.orphanCleanups,
		m.playbackResolutions,
		m.staleResults,
		m.activeSessions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Review) SaveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(outcome).Inc()
}

func (m *Review) AttachmentFailure(stage string) {
	if m == nil {
		return
	}
	m.attachmentFailures.WithLabelValues(stage).Inc()
}

func (m *Review) OrphanCleanup(result string) {
	if m == nil {
		return
	}
	m.orphanCleanups.WithLabelValues(result).Inc()
}

func (m *Review) PlaybackResolution(result string) {
	if m == nil {
		return
	}
	m.playbackResolutions.WithLabelValues(result).Inc()
}

func (m *Review) StaleResult(kind string) {
	if m == nil {
		return
	}
	m.staleResults.WithLabelValues(kind).Inc()
}

func (m *Review) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
