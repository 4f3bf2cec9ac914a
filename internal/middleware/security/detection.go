package security

import (
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	BlockedRequests    int64
}

// Detector flags scanner traffic. Probes for files the app never serves
// are answered with 404 before reaching the router's handlers.
type Detector struct {
	metrics *DetectionMetrics
	block   bool
}

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"<script", "union select", "etc/passwd", "cmd.exe",
	}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// NewDetector creates a detector. When block is false suspicious requests
// are only logged.
func NewDetector(block bool) *Detector {
	return &Detector{metrics: &DetectionMetrics{}, block: block}
}

// DetectSuspiciousRequest analyzes request patterns for potential threats
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			return true
		}
	}
	for _, method := range unusualMethods {
		if r.Method == method {
			return true
		}
	}
	// Excessively long URLs
	return len(r.URL.String()) > 2048
}

// Middleware logs suspicious requests and, when blocking, answers them
// with 404.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !d.DetectSuspiciousRequest(r) {
			next.ServeHTTP(w, r)
			return
		}
		atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
		slog.WarnContext(r.Context(), "Suspicious request",
			"component", "security",
			"method", r.Method,
			"path", r.URL.Path,
			"client_ip", r.RemoteAddr,
			"user_agent", r.Header.Get("User-Agent"))
		if d.block {
			atomic.AddInt64(&d.metrics.BlockedRequests, 1)
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.metrics.SuspiciousRequests),
		BlockedRequests:    atomic.LoadInt64(&d.metrics.BlockedRequests),
	}
}
