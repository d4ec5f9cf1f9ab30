package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/sendrec/framereview/internal/auth"
	"github.com/sendrec/framereview/internal/httputil"
)

const idleTimeout = 10 * time.Minute

// Limiter hands each client its own token bucket. Reviewers are keyed by
// their id once authenticated, anonymous callers by client address. Buckets
// idle for ten minutes are dropped.
type Limiter struct {
	visitors *cache.Cache
	limit    rate.Limit
	burst    int
}

func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	return &Limiter{
		visitors: cache.New(idleTimeout, idleTimeout/2),
		limit:    rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (l *Limiter) allow(key string) bool {
	if v, ok := l.visitors.Get(key); ok {
		l.visitors.SetDefault(key, v)
		return v.(*rate.Limiter).Allow()
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	if err := l.visitors.Add(key, lim, cache.DefaultExpiration); err != nil {
		if v, ok := l.visitors.Get(key); ok {
			lim = v.(*rate.Limiter)
		}
	}
	return lim.Allow()
}

func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "10")
			httputil.WriteError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	if id := auth.UserIDFromContext(r.Context()); id != "" {
		return "reviewer:" + id
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return "ip:" + strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
