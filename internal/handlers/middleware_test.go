package handlers

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/reviewloop/review-service/internal/config"
	"github.com/reviewloop/review-service/internal/metrics"
)

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	t.Run("GeneratesWhenAbsent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Header().Get("X-Request-ID") == "" {
			t.Error("Expected a generated X-Request-ID header")
		}
		if w.Body.String() != w.Header().Get("X-Request-ID") {
			t.Error("Context request_id should match the response header")
		}
	})

	t.Run("EchoesClientValue", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", "client-supplied-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("X-Request-ID"); got != "client-supplied-id" {
			t.Errorf("Expected echoed request ID, got %q", got)
		}
	})
}

func TestSecurityMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SecurityMiddleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	expected := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, want := range expected {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("AllowListedOrigin", func(t *testing.T) {
		cfg := &config.Config{AllowedOrigins: []string{"https://app.example.com"}}
		router := gin.New()
		router.Use(CORSMiddleware(cfg))
		router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Errorf("Access-Control-Allow-Origin = %q", got)
		}
	})

	t.Run("UnlistedOriginRejected", func(t *testing.T) {
		cfg := &config.Config{AllowedOrigins: []string{"https://app.example.com"}}
		router := gin.New()
		router.Use(CORSMiddleware(cfg))
		router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		req.Header.Set("Access-Control-Request-Method", "GET")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Errorf("Unlisted origin was allowed: %q", got)
		}
	})

	t.Run("WildcardAllowsAll", func(t *testing.T) {
		cfg := &config.Config{AllowedOrigins: []string{"*"}}
		router := gin.New()
		router.Use(CORSMiddleware(cfg))
		router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
		}
	})
}

// captureHTTPRecorder collects the metrics middleware calls.
type captureHTTPRecorder struct {
	metrics.NopRecorder
	mu        sync.Mutex
	requests  []string
	latencies int
}

func (r *captureHTTPRecorder) RecordHTTPRequest(method, path string, status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, method+" "+path)
}

func (r *captureHTTPRecorder) RecordHTTPLatency(duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies++
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := &captureHTTPRecorder{}
	router := gin.New()
	router.Use(MetricsMiddleware(recorder))
	router.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if len(recorder.requests) != 1 {
		t.Fatalf("Expected one recorded request, got %d", len(recorder.requests))
	}
	// The route template, not the concrete path, keeps label cardinality low.
	if recorder.requests[0] != "GET /users/:id" {
		t.Errorf("Recorded %q, want %q", recorder.requests[0], "GET /users/:id")
	}
	if recorder.latencies != 1 {
		t.Errorf("Expected one latency observation, got %d", recorder.latencies)
	}
}
