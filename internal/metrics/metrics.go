// Package metrics collects and exposes Prometheus metrics for the review service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by middleware, services and workers.
type Recorder interface {
	RecordHTTPRequest(method, path string, status int)
	RecordHTTPLatency(duration time.Duration)
	RecordLoginAttempt(success bool)
	RecordSessionRevoked(reason string)
	RecordFeedbackSubmitted()
	SetActiveSessions(count int64)
}

// Collector implements Recorder on top of Prometheus collectors.
type Collector struct {
	httpRequests      *prometheus.CounterVec
	httpLatency       prometheus.Histogram
	loginAttempts     *prometheus.CounterVec
	sessionsRevoked   *prometheus.CounterVec
	feedbackSubmitted prometheus.Counter
	activeSessions    prometheus.Gauge
}

// NewCollector creates a Collector and registers its metrics on the given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "path", "status"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "review_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_login_attempts_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		sessionsRevoked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_sessions_revoked_total",
			Help: "Revoked sessions by reason",
		}, []string{"reason"}),
		feedbackSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "review_feedback_submitted_total",
			Help: "Feedback submissions accepted",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "review_active_sessions",
			Help: "Sessions that are neither idle-expired nor past their absolute expiry",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.loginAttempts,
		c.sessionsRevoked,
		c.feedbackSubmitted,
		c.activeSessions,
	)

	return c
}

// RecordHTTPRequest counts a finished HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// RecordHTTPLatency observes the duration of a finished HTTP request.
func (c *Collector) RecordHTTPLatency(duration time.Duration) {
	c.httpLatency.Observe(duration.Seconds())
}

// RecordLoginAttempt counts a login attempt.
func (c *Collector) RecordLoginAttempt(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.loginAttempts.WithLabelValues(result).Inc()
}

// RecordSessionRevoked counts a revoked session. Reason is one of
// "expired", "logout" or "revoked".
func (c *Collector) RecordSessionRevoked(reason string) {
	c.sessionsRevoked.WithLabelValues(reason).Inc()
}

// RecordFeedbackSubmitted counts an accepted feedback submission.
func (c *Collector) RecordFeedbackSubmitted() {
	c.feedbackSubmitted.Inc()
}

// SetActiveSessions updates the active session gauge.
func (c *Collector) SetActiveSessions(count int64) {
	c.activeSessions.Set(float64(count))
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopRecorder discards all metrics. Used in tests and when metrics are disabled.
type NopRecorder struct{}

func (NopRecorder) RecordHTTPRequest(method, path string, status int) {}
func (NopRecorder) RecordHTTPLatency(duration time.Duration)         {}
func (NopRecorder) RecordLoginAttempt(success bool)                  {}
func (NopRecorder) RecordSessionRevoked(reason string)               {}
func (NopRecorder) RecordFeedbackSubmitted()                         {}
func (NopRecorder) SetActiveSessions(count int64)                    {}
