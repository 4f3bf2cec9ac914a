package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "saloncal/internal/log"
)

func TestMiddlewareLogsAndCounts(t *testing.T) {
	var buf bytes.Buffer
	cfg := applog.DefaultConfig()
	cfg.Output = &buf
	m := NewMiddleware(applog.New(cfg))

	var seenID string
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(m.Middleware)
	r.Get("/api/days/{date}", func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/days/2025-09-10", nil))

	if w.Code != http.StatusTeapot {
		t.Fatalf("status = %d", w.Code)
	}
	if seenID == "" {
		t.Error("request id not available to handlers")
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d, want 1", got)
	}
	if !strings.Contains(buf.String(), "418") {
		t.Errorf("log does not carry the status:\n%s", buf.String())
	}
}

func TestRoutePatternUnmatched(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	if got := routePattern(r); got != "unmatched" {
		t.Errorf("routePattern() = %q", got)
	}
}
