package ratelimit

import (
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/httprate"
)

// Config holds rate limiter configuration
type Config struct {
	// RequestsPerMinute applies to every route, per client IP.
	RequestsPerMinute int
	// UnlockPerMinute applies to PIN attempts, per client IP.
	UnlockPerMinute int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 200,
		UnlockPerMinute:   10,
	}
}

// Limiter builds per-IP limit middleware and counts rejections.
type Limiter struct {
	config   Config
	rejected int64
}

// NewLimiter creates a new rate limiter. Non-positive limits fall back to
// the defaults.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.UnlockPerMinute <= 0 {
		config.UnlockPerMinute = def.UnlockPerMinute
	}
	return &Limiter{config: config}
}

// Global limits every request by client IP.
func (l *Limiter) Global() func(http.Handler) http.Handler {
	return l.limit(l.config.RequestsPerMinute, "global")
}

// Unlock limits PIN attempts by client IP.
func (l *Limiter) Unlock() func(http.Handler) http.Handler {
	return l.limit(l.config.UnlockPerMinute, "unlock")
}

func (l *Limiter) limit(n int, name string) func(http.Handler) http.Handler {
	return httprate.Limit(n, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&l.rejected, 1)
			slog.WarnContext(r.Context(), "Rate limit exceeded",
				"component", "rate_limit",
				"limiter", name,
				"client_ip", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		}),
	)
}

// Rejected returns how many requests were refused.
func (l *Limiter) Rejected() int64 {
	return atomic.LoadInt64(&l.rejected)
}
