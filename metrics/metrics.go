package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "estante",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estante",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "estante",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	authAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estante",
			Subsystem: "identity",
			Name:      "auth_attempts_total",
			Help:      "Signups and logins by outcome.",
		},
		[]string{"action", "outcome"},
	)

	catalogLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estante",
			Subsystem: "books",
			Name:      "catalog_lookups_total",
			Help:      "Book cache lookups by result (hit, fetched, unknown, unavailable).",
		},
		[]string{"result"},
	)

	catalogDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "estante",
			Subsystem: "books",
			Name:      "catalog_request_duration_seconds",
			Help:      "Duration of requests to the external book catalog.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"operation"},
	)

	ledgerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "estante",
			Subsystem: "ledger",
			Name:      "events_total",
			Help:      "Review, comment, like and follow mutations by kind.",
		},
		[]string{"event"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		authAttempts,
		catalogLookups,
		catalogDuration,
		ledgerEvents,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// RecordAuth counts a signup or login attempt.
func RecordAuth(action string, ok bool) {
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	authAttempts.WithLabelValues(action, outcome).Inc()
}

// RecordCatalogLookup counts a book cache resolution by result.
func RecordCatalogLookup(result string) {
	catalogLookups.WithLabelValues(result).Inc()
}

// ObserveCatalogRequest records the latency of one catalog round trip.
func ObserveCatalogRequest(operation string, duration time.Duration) {
	catalogDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEvent counts a ledger mutation such as "review_created" or "like_added".
func RecordEvent(event string) {
	ledgerEvents.WithLabelValues(event).Inc()
}
