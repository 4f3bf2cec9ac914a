// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "saloncal"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	daysSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "days_saved_total",
		Help:      "Day record saves by outcome.",
	}, []string{"outcome"})

	capRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cap_rejections_total",
		Help:      "Count adjustments rejected because the daily cap was reached.",
	})

	syncResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sheet_sync_total",
		Help:      "Day mirror attempts by outcome.",
	}, []string{"outcome"})

	publishResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "amqp_publish_total",
		Help:      "day.saved publications by outcome.",
	}, []string{"outcome"})

	cacheSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "cache_entries",
		Help:      "Entries held per in-process cache.",
	}, []string{"cache"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Month view cache lookups by result.",
	}, []string{"result"})

	exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exports_total",
		Help:      "Month exports by format.",
	}, []string{"format"})
)

// ObserveHTTP records one served request. route is the matched router
// pattern, never the raw path, to keep label cardinality bounded.
func ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func DaySaved(err error) { daysSaved.WithLabelValues(outcome(err)).Inc() }

func CapRejected() { capRejections.Inc() }

func SheetSync(err error) { syncResults.WithLabelValues(outcome(err)).Inc() }

func Published(err error) { publishResults.WithLabelValues(outcome(err)).Inc() }

func CacheSize(name string, size int) { cacheSize.WithLabelValues(name).Set(float64(size)) }

func CacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func Exported(format string) { exports.WithLabelValues(format).Inc() }

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
