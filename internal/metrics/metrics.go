// Package metrics exposes Prometheus collectors for grid scraping runs.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionsTotal              *prometheus.CounterVec
	activeSessions             prometheus.Gauge
	sessionDurationSeconds     *prometheus.HistogramVec
	articlesTotal              *prometheus.CounterVec
	fieldFallbacksTotal        *prometheus.CounterVec
	imageDownloadsTotal        *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus collectors. It is safe to call repeatedly.
func Init() {
	once.Do(func() {
		sessionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridscraper_sessions_total",
				Help: "Total number of grid sessions, labeled by browser and final status.",
			},
			[]string{"browser", "status"},
		)

		activeSessions = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "gridscraper_active_sessions",
				Help: "Number of sessions currently running.",
			},
		)

		sessionDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridscraper_session_duration_seconds",
				Help:    "Histogram of session wall time, labeled by browser.",
				Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"browser"},
		)

		articlesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridscraper_articles_total",
				Help: "Total number of article records extracted, labeled by browser.",
			},
			[]string{"browser"},
		)

		fieldFallbacksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridscraper_field_fallbacks_total",
				Help: "Total number of article fields replaced by a sentinel, labeled by field.",
			},
			[]string{"field"},
		)

		imageDownloadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridscraper_image_downloads_total",
				Help: "Total number of cover image downloads, labeled by host and outcome.",
			},
			[]string{"host", "outcome"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname from a URL.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SessionStarted increments the active sessions gauge.
func SessionStarted() {
	activeSessions.Inc()
}

// SessionFinished records the outcome of a session and decrements the gauge.
func SessionFinished(browser, status string, articles int, duration time.Duration) {
	activeSessions.Dec()
	sessionsTotal.WithLabelValues(browser, status).Inc()
	sessionDurationSeconds.WithLabelValues(browser).Observe(duration.Seconds())
	if articles > 0 {
		articlesTotal.WithLabelValues(browser).Add(float64(articles))
	}
}

// ObserveFieldFallback counts a sentinel substitution for field.
func ObserveFieldFallback(field string) {
	fieldFallbacksTotal.WithLabelValues(field).Inc()
}

// ObserveImageDownload counts an image download attempt.
func ObserveImageDownload(rawURL, outcome string) {
	imageDownloadsTotal.WithLabelValues(SanitizeSite(rawURL), outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
