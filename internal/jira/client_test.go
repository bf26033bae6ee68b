package jira

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		BaseURL:          "https://example.atlassian.net",
		Email:            "svc@example.com",
		APIToken:         "token",
		ProjectKey:       "REV",
		StoryPointsField: "customfield_10016",
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(testConfig(), slog.New(slog.NewTextHandler(os.Stdout, nil)))
	client.endpoint = server.URL
	return client
}

func TestClientEnabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if !NewClient(testConfig(), logger).Enabled() {
		t.Error("Enabled() = false with full config")
	}
	if NewClient(Config{BaseURL: "https://x"}, logger).Enabled() {
		t.Error("Enabled() = true without credentials")
	}
}

func TestFetchUserStats(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	response := map[string]interface{}{
		"startAt":    0,
		"maxResults": 100,
		"total":      3,
		"issues": []map[string]interface{}{
			{
				"key": "REV-1",
				"fields": map[string]interface{}{
					"created":           "2026-01-05T10:00:00.000+0000",
					"resolutiondate":    "2026-01-20T16:30:00.000+0000",
					"status":            map[string]interface{}{"statusCategory": map[string]interface{}{"key": "done"}},
					"customfield_10016": 5.0,
				},
			},
			{
				"key": "REV-2",
				"fields": map[string]interface{}{
					"created":           "2026-01-12T09:00:00.000+0000",
					"resolutiondate":    nil,
					"status":            map[string]interface{}{"statusCategory": map[string]interface{}{"key": "indeterminate"}},
					"customfield_10016": 3.0,
				},
			},
			{
				// Created before the window, resolved inside it.
				"key": "REV-3",
				"fields": map[string]interface{}{
					"created":           "2025-12-20T11:00:00.000+0000",
					"resolutiondate":    "2026-01-08T12:00:00.000+0000",
					"status":            map[string]interface{}{"statusCategory": map[string]interface{}{"key": "done"}},
					"customfield_10016": 2.0,
				},
			},
		},
	}

	var gotJQL string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if user, _, ok := r.BasicAuth(); !ok || user != "svc@example.com" {
			t.Errorf("missing or wrong basic auth user: %q", user)
		}

		body, _ := io.ReadAll(r.Body)
		var req searchRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("failed to decode search request: %v", err)
		}
		gotJQL = req.JQL

		json.NewEncoder(w).Encode(response)
	})

	stats, err := client.FetchUserStats(context.Background(), "bob", from, to)
	if err != nil {
		t.Fatalf("FetchUserStats() error = %v", err)
	}

	if !strings.Contains(gotJQL, `assignee = "bob"`) {
		t.Errorf("JQL missing assignee clause: %s", gotJQL)
	}
	if !strings.Contains(gotJQL, "project = REV") {
		t.Errorf("JQL missing project clause: %s", gotJQL)
	}

	if stats.Created != 2 {
		t.Errorf("Created = %d, want 2", stats.Created)
	}
	if stats.Resolved != 2 {
		t.Errorf("Resolved = %d, want 2", stats.Resolved)
	}
	if stats.InProgress != 1 {
		t.Errorf("InProgress = %d, want 1", stats.InProgress)
	}
	if stats.StoryPoints != 7.0 {
		t.Errorf("StoryPoints = %v, want 7.0", stats.StoryPoints)
	}
	if len(stats.Raw) == 0 {
		t.Error("Raw payload is empty")
	}
}

func TestFetchUserStatsPagination(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req searchRequest
		json.Unmarshal(body, &req)

		calls++
		issues := []map[string]interface{}{{
			"key": "REV-9",
			"fields": map[string]interface{}{
				"created": "2026-01-05T10:00:00.000+0000",
				"status":  map[string]interface{}{"statusCategory": map[string]interface{}{"key": "new"}},
			},
		}}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"startAt":    req.StartAt,
			"maxResults": 1,
			"total":      2,
			"issues":     issues,
		})
	})

	stats, err := client.FetchUserStats(context.Background(), "bob", from, to)
	if err != nil {
		t.Fatalf("FetchUserStats() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("search called %d times, want 2", calls)
	}
	if stats.Created != 2 {
		t.Errorf("Created = %d, want 2", stats.Created)
	}
}

func TestFetchUserStatsServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusBadGateway)
	})

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := client.FetchUserStats(context.Background(), "bob", from, from.AddDate(0, 1, 0)); err == nil {
		t.Fatal("FetchUserStats() should fail on non-200 response")
	}
}

func TestFetchUserStatsNotConfigured(t *testing.T) {
	client := NewClient(Config{}, slog.New(slog.NewTextHandler(os.Stdout, nil)))

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := client.FetchUserStats(context.Background(), "bob", from, from.AddDate(0, 1, 0)); err == nil {
		t.Fatal("FetchUserStats() should fail when not configured")
	}
}
