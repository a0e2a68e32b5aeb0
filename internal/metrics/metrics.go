// Package metrics exposes Prometheus instrumentation for the planner.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	tleFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overpass_tle_fetch_total",
			Help: "TLE catalog resolutions by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	tleCacheAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "overpass_tle_cache_age_seconds",
			Help: "Age of the on-disk TLE catalog cache.",
		},
	)

	passSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "overpass_pass_search_duration_seconds",
			Help:    "Wall time of one overpass search.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	passesFoundTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "overpass_passes_found_total",
			Help: "Total overpasses emitted by searches.",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "overpass_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "overpass_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		tleFetchTotal,
		tleCacheAgeSeconds,
		passSearchDuration,
		passesFoundTotal,
		httpRequestsTotal,
		httpDurationSeconds,
	)
}

// IncTLEFetch records one catalog resolution. source is "cache" or "network".
func IncTLEFetch(source, outcome string) {
	tleFetchTotal.WithLabelValues(source, outcome).Inc()
}

// SetTLECacheAge publishes the current cache age.
func SetTLECacheAge(age time.Duration) {
	tleCacheAgeSeconds.Set(age.Seconds())
}

// ObservePassSearch records one completed overpass search.
func ObservePassSearch(d time.Duration, passes int) {
	passSearchDuration.Observe(d.Seconds())
	passesFoundTotal.Add(float64(passes))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// knownRoutes are exact paths that keep their own label.
var knownRoutes = map[string]bool{
	"/":                  true,
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/api/v1/overpasses": true,
}

// normalizeRoute collapses parameterized and unknown paths to bounded labels
// so scanner traffic cannot blow up metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/tle/") {
		return "/api/v1/tle/{norad_id}"
	}
	if strings.HasPrefix(path, "/api/v1/satellites/") {
		return "/api/v1/satellites/{norad_id}/name"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
