package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sendrec/framereview/internal/auth"
	"github.com/sendrec/framereview/internal/httputil"
	"github.com/sendrec/framereview/internal/ratelimit"
	"github.com/sendrec/framereview/internal/review"
	"github.com/sendrec/framereview/internal/validate"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Pinger    Pinger
	Verifier  *auth.Verifier
	Review    *review.Handler
	Metrics   http.Handler
	BaseURL   string
	RateLimit float64
	RateBurst int
}

type Server struct {
	router   chi.Router
	pinger   Pinger
	verifier *auth.Verifier
	review   *review.Handler
	metrics  http.Handler
	limiter  *ratelimit.Limiter
}

func New(cfg Config) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(slogMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders(SecurityConfig{BaseURL: cfg.BaseURL}))

	rateLimit, rateBurst := cfg.RateLimit, cfg.RateBurst
	if rateLimit <= 0 {
		rateLimit = 10
	}
	if rateBurst <= 0 {
		rateBurst = 40
	}

	s := &Server{
		router:   r,
		pinger:   cfg.Pinger,
		verifier: cfg.Verifier,
		review:   cfg.Review,
		metrics:  cfg.Metrics,
		limiter:  ratelimit.NewLimiter(rateLimit, rateBurst),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics)
	}

	if s.review != nil && s.verifier != nil {
		s.router.Route("/api/review", func(r chi.Router) {
			r.Use(s.verifier.Middleware)
			r.Use(s.limiter.Middleware)
			r.Get("/presets", s.handlePresets)
			r.Route("/sessions", s.review.Routes)
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type presetsResponse struct {
	Tools        []review.Tool  `json:"tools"`
	Palette      []string       `json:"palette"`
	StrokeWidths []float64      `json:"strokeWidths"`
	Defaults     review.Shape   `json:"defaults"`
	FieldLimits  map[string]int `json:"fieldLimits"`
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, presetsResponse{
		Tools:        review.Tools,
		Palette:      review.Palette,
		StrokeWidths: review.StrokeWidths,
		Defaults: review.Shape{
			Type:        review.DefaultTool,
			Color:       review.DefaultColor,
			StrokeWidth: review.DefaultStrokeWidth,
		},
		FieldLimits: validate.FieldLimits(),
	})
}
