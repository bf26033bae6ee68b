package repositories

import (
	"time"

	"github.com/reviewloop/review-service/internal/models"
)

// ===== SHARED STATISTICS STRUCTS =====

type CycleStats struct {
	TotalRequests     int64   `json:"total_requests"`
	SubmittedRequests int64   `json:"submitted_requests"`
	DeclinedRequests  int64   `json:"declined_requests"`
	PendingRequests   int64   `json:"pending_requests"`
	CompletionRate    float64 `json:"completion_rate"`

	TotalAssessments     int64 `json:"total_assessments"`
	SubmittedAssessments int64 `json:"submitted_assessments"`
}

type UserStats struct {
	FeedbackGiven    int64    `json:"feedback_given"`
	FeedbackReceived int64    `json:"feedback_received"`
	AverageRating    *float64 `json:"average_rating,omitempty"`
	PendingRequests  int64    `json:"pending_requests"`
}

type TeamOverview struct {
	Team        *models.Team `json:"team"`
	MemberCount int64        `json:"member_count"`
	LeadName    *string      `json:"lead_name,omitempty"`
}

type SessionStats struct {
	ActiveSessions int64      `json:"active_sessions"`
	OldestSession  *time.Time `json:"oldest_session,omitempty"`
}
