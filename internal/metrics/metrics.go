// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// LinksCreatedTotal counts created short links by allocation mode.
	LinksCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "links_created_total",
			Help: "Total number of short links created",
		},
		[]string{"mode"},
	)

	// CodeCollisionsTotal counts random short-code collisions.
	CodeCollisionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "code_collisions_total",
			Help: "Total number of random short-code collisions",
		},
	)

	// CachePopulateFailuresTotal counts failed best-effort cache writes.
	CachePopulateFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_populate_failures_total",
			Help: "Total number of failed cache population attempts",
		},
	)

	// SweepsTotal counts expiry sweep runs.
	SweepsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "expiry_sweeps_total",
			Help: "Total number of expiry sweep runs",
		},
	)

	// LinksDeactivatedTotal counts links deactivated by the sweep.
	LinksDeactivatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "links_deactivated_total",
			Help: "Total number of links deactivated by the expiry sweep",
		},
	)

	// ActiveConnections tracks current in-flight HTTP requests.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	// RateLimitedTotal counts rate-limited requests.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rate_limited_total",
			Help: "Total number of rate-limited requests",
		},
	)
)

// Allocation modes for LinksCreatedTotal.
const (
	ModeRandom = "random"
	ModeAlias  = "alias"
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records an HTTP request metric.
func RecordRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordLinkCreated records a successful allocation.
func RecordLinkCreated(mode string) {
	LinksCreatedTotal.WithLabelValues(mode).Inc()
}

// RecordCollision records a random-code collision.
func RecordCollision() {
	CodeCollisionsTotal.Inc()
}

// RecordCachePopulateFailure records a swallowed cache write failure.
func RecordCachePopulateFailure() {
	CachePopulateFailuresTotal.Inc()
}

// RecordSweep records one sweep run and the number of links it deactivated.
func RecordSweep(deactivated int64) {
	SweepsTotal.Inc()
	if deactivated > 0 {
		LinksDeactivatedTotal.Add(float64(deactivated))
	}
}

// RecordRateLimited records a rate-limited request.
func RecordRateLimited() {
	RateLimitedTotal.Inc()
}
