package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestCollectorCountsHTTPRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", "/api/v1/users", 200)
	c.RecordHTTPRequest("GET", "/api/v1/users", 200)
	c.RecordHTTPRequest("POST", "/api/v1/auth/login", 401)

	if got := counterValue(t, reg, "review_http_requests_total"); got != 3 {
		t.Errorf("http_requests_total = %v, want 3", got)
	}
}

func TestCollectorObservesLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPLatency(100 * time.Millisecond)
	c.RecordHTTPLatency(2 * time.Second)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() != "review_http_request_duration_seconds" {
			continue
		}
		found = true
		h := mf.GetMetric()[0].GetHistogram()
		if h.GetSampleCount() != 2 {
			t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
		}
		if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
			t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
		}
	}
	if !found {
		t.Error("review_http_request_duration_seconds metric not found")
	}
}

func TestCollectorCountsLoginAttemptsByResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordLoginAttempt(true)
	c.RecordLoginAttempt(false)
	c.RecordLoginAttempt(false)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() != "review_login_attempts_total" {
			continue
		}
		if len(mf.GetMetric()) != 2 {
			t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
		}
		for _, m := range mf.GetMetric() {
			label := m.GetLabel()[0].GetValue()
			val := m.GetCounter().GetValue()
			switch label {
			case "success":
				if val != 1 {
					t.Errorf("login_attempts_total{result=success} = %v, want 1", val)
				}
			case "failure":
				if val != 2 {
					t.Errorf("login_attempts_total{result=failure} = %v, want 2", val)
				}
			default:
				t.Errorf("unexpected label value: %s", label)
			}
		}
	}
}

func TestCollectorTracksSessionGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.SetActiveSessions(12)
	c.SetActiveSessions(7)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range families {
		if mf.GetName() != "review_active_sessions" {
			continue
		}
		found = true
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 7 {
			t.Errorf("active_sessions = %v, want 7", got)
		}
	}
	if !found {
		t.Error("review_active_sessions metric not found")
	}
}

func TestHandlerServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPRequest("GET", "/health", 200)
	c.RecordLoginAttempt(true)
	c.RecordSessionRevoked("expired")
	c.RecordFeedbackSubmitted()
	c.SetActiveSessions(3)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, metric := range []string{
		"review_http_requests_total",
		"review_login_attempts_total",
		"review_sessions_revoked_total",
		"review_feedback_submitted_total",
		"review_active_sessions",
	} {
		if !strings.Contains(string(body), metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

func TestCollectorImplementsRecorder(t *testing.T) {
	var _ Recorder = NewCollector(prometheus.NewRegistry())
}
