// Package metrics exposes Prometheus collectors for the dashboard service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status labels shared by the counters below.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

var (
	buildsTotal                *prometheus.CounterVec
	buildDurationSeconds       prometheus.Histogram
	catalogRequestsTotal       *prometheus.CounterVec
	uploadsTotal               *prometheus.CounterVec
	purgesTotal                *prometheus.CounterVec
	throttleDelaySeconds       *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		buildsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dasher_builds_total",
				Help: "Total number of product dashboard builds, labeled by status.",
			},
			[]string{"status"},
		)

		buildDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dasher_build_duration_seconds",
				Help:    "Histogram of end-to-end product dashboard build durations.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		)

		catalogRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dasher_catalog_requests_total",
				Help: "Total number of Keeper API requests, labeled by endpoint and status code.",
			},
			[]string{"endpoint", "code"},
		)

		uploadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dasher_uploads_total",
				Help: "Total number of object uploads, labeled by status.",
			},
			[]string{"status"},
		)

		purgesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dasher_purges_total",
				Help: "Total number of edge cache purges, labeled by status.",
			},
			[]string{"status"},
		)

		throttleDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dasher_throttle_delay_seconds",
				Help:    "Time outbound requests spent waiting on the per-host rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"host"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBuild records the outcome and duration of one product build.
func ObserveBuild(status string, duration time.Duration) {
	Init()
	buildsTotal.WithLabelValues(status).Inc()
	buildDurationSeconds.Observe(duration.Seconds())
}

// ObserveCatalogRequest counts a Keeper API request. A code of 0 marks a
// transport failure.
func ObserveCatalogRequest(endpoint string, code int) {
	Init()
	catalogRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}

// ObserveUpload counts an object upload.
func ObserveUpload(status string) {
	Init()
	uploadsTotal.WithLabelValues(status).Inc()
}

// ObservePurge counts an edge cache purge.
func ObservePurge(status string) {
	Init()
	purgesTotal.WithLabelValues(status).Inc()
}

// ObserveThrottleDelay records how long a request waited for a rate limit token.
func ObserveThrottleDelay(host string, delay time.Duration) {
	Init()
	throttleDelaySeconds.WithLabelValues(host).Observe(delay.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
