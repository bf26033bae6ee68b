// Package jira fetches per-user issue statistics from the Jira REST API.
// Stats are aggregated per calendar month and cached by the jira service.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	searchPath = "/rest/api/2/search"
	pageSize   = 100
	maxPages   = 20
)

// jiraTimeLayout is the timestamp format Jira uses in issue fields.
const jiraTimeLayout = "2006-01-02T15:04:05.000-0700"

// Config holds the connection settings for one Jira site.
type Config struct {
	BaseURL          string
	Email            string
	APIToken         string
	ProjectKey       string
	StoryPointsField string
}

// Client calls the Jira search API.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	cfg        Config
	endpoint   string // swappable in tests
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		cfg:        cfg,
		endpoint:   cfg.BaseURL + searchPath,
	}
}

// Enabled reports whether the client has enough configuration to make calls.
func (c *Client) Enabled() bool {
	return c.cfg.BaseURL != "" && c.cfg.Email != "" && c.cfg.APIToken != ""
}

// UserIssueStats aggregates one user's Jira activity inside a time window.
type UserIssueStats struct {
	Created     int
	Resolved    int
	InProgress  int
	StoryPoints float64
	Raw         json.RawMessage
}

type searchRequest struct {
	JQL        string   `json:"jql"`
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Fields     []string `json:"fields"`
}

type searchResponse struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []issue `json:"issues"`
}

type issue struct {
	Key    string                     `json:"key"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// FetchUserStats searches for the user's issues touched inside [from, to) and
// aggregates them. The window is expected to be one calendar month.
func (c *Client) FetchUserStats(ctx context.Context, jiraUsername string, from, to time.Time) (*UserIssueStats, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("jira client is not configured")
	}

	jql := fmt.Sprintf(`assignee = %q AND (created >= %q AND created < %q OR resolutiondate >= %q AND resolutiondate < %q)`,
		jiraUsername,
		from.Format("2006-01-02"), to.Format("2006-01-02"),
		from.Format("2006-01-02"), to.Format("2006-01-02"))
	if c.cfg.ProjectKey != "" {
		jql = fmt.Sprintf("project = %s AND %s", c.cfg.ProjectKey, jql)
	}

	stats := &UserIssueStats{}
	var allIssues []issue

	startAt := 0
	for page := 0; page < maxPages; page++ {
		resp, err := c.search(ctx, jql, startAt)
		if err != nil {
			return nil, err
		}

		allIssues = append(allIssues, resp.Issues...)
		startAt += len(resp.Issues)
		if startAt >= resp.Total || len(resp.Issues) == 0 {
			break
		}
	}

	for _, iss := range allIssues {
		c.aggregate(stats, iss, from, to)
	}

	if raw, err := json.Marshal(allIssues); err == nil {
		stats.Raw = raw
	}

	c.logger.Debug("Fetched Jira stats",
		"username", jiraUsername,
		"issues", len(allIssues),
		"created", stats.Created,
		"resolved", stats.Resolved)

	return stats, nil
}

func (c *Client) search(ctx context.Context, jql string, startAt int) (*searchResponse, error) {
	reqBody := searchRequest{
		JQL:        jql,
		StartAt:    startAt,
		MaxResults: pageSize,
		Fields:     []string{"status", "created", "resolutiondate", c.cfg.StoryPointsField},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Jira search request failed", "error", err)
		return nil, fmt.Errorf("jira search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("Jira search returned error status",
			"http_status", resp.StatusCode,
			"body", string(body))
		return nil, fmt.Errorf("jira search returned status %d", resp.StatusCode)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode jira search response: %w", err)
	}

	return &result, nil
}

func (c *Client) aggregate(stats *UserIssueStats, iss issue, from, to time.Time) {
	if created, ok := parseJiraTime(iss.Fields["created"]); ok {
		if !created.Before(from) && created.Before(to) {
			stats.Created++
		}
	}

	resolved := false
	if resolvedAt, ok := parseJiraTime(iss.Fields["resolutiondate"]); ok {
		if !resolvedAt.Before(from) && resolvedAt.Before(to) {
			stats.Resolved++
			resolved = true
		}
	}

	if statusCategoryKey(iss.Fields["status"]) == "indeterminate" {
		stats.InProgress++
	}

	// Story points only count once the issue is done.
	if resolved {
		if points, ok := parsePoints(iss.Fields[c.cfg.StoryPointsField]); ok {
			stats.StoryPoints += points
		}
	}
}

func parseJiraTime(raw json.RawMessage) (time.Time, bool) {
	if len(raw) == 0 {
		return time.Time{}, false
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(jiraTimeLayout, *s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func statusCategoryKey(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var status struct {
		StatusCategory struct {
			Key string `json:"key"`
		} `json:"statusCategory"`
	}
	if err := json.Unmarshal(raw, &status); err != nil {
		return ""
	}
	return status.StatusCategory.Key
}

func parsePoints(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var points *float64
	if err := json.Unmarshal(raw, &points); err != nil || points == nil {
		return 0, false
	}
	return *points, true
}
