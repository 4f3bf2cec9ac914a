package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestDetectSuspiciousRequest(t *testing.T) {
	d := NewDetector(true)
	tests := []struct {
		name   string
		method string
		target string
		want   bool
	}{
		{"month page", http.MethodGet, "/?month=2025-09", false},
		{"day partial", http.MethodGet, "/ui/day/2025-09-10", false},
		{"env probe", http.MethodGet, "/.env", true},
		{"git probe", http.MethodGet, "/.git/config", true},
		{"traversal in query", http.MethodGet, "/ui/month?month=../../etc/passwd", true},
		{"wordpress", http.MethodGet, "/wp-admin/", true},
		{"trace method", "TRACE", "/", true},
		{"long url", http.MethodGet, "/?q=" + strings.Repeat("a", 2100), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			if got := d.DetectSuspiciousRequest(r); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectorMiddleware(t *testing.T) {
	blocking := NewDetector(true).Middleware(okHandler())
	w := httptest.NewRecorder()
	blocking.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.env", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("blocking status = %d, want 404", w.Code)
	}

	d := NewDetector(false)
	w = httptest.NewRecorder()
	d.Middleware(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/.env", nil))
	if w.Code != http.StatusOK {
		t.Errorf("log-only status = %d, want 200", w.Code)
	}
	m := d.GetMetrics()
	if m.SuspiciousRequests != 1 || m.BlockedRequests != 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("X-Frame-Options = %q", w.Header().Get("X-Frame-Options"))
	}
	if !strings.Contains(w.Header().Get("Content-Security-Policy"), "https://unpkg.com") {
		t.Errorf("CSP does not allow htmx: %q", w.Header().Get("Content-Security-Policy"))
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestHeadersSkipEmptyValues(t *testing.T) {
	h := NewHeadersMiddleware(HeadersConfig{XContentTypeOptions: "nosniff"}).Middleware(okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if _, ok := w.Header()["Content-Security-Policy"]; ok {
		t.Error("empty CSP should not be set")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("nosniff missing")
	}
}

func TestCacheControl(t *testing.T) {
	w := httptest.NewRecorder()
	StaticAssetMiddleware(3600)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	if got := w.Header().Get("Cache-Control"); got != "public, max-age=3600" {
		t.Errorf("static Cache-Control = %q", got)
	}

	w = httptest.NewRecorder()
	NoStore(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ui/month", nil))
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("NoStore Cache-Control = %q", got)
	}
}
