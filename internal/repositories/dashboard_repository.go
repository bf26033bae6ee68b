package repositories

import (
	"context"
	"time"

	"github.com/reviewloop/review-service/internal/models"
)

// DashboardRepository interface for dashboard analytics operations
type DashboardRepository interface {
	// Org-wide totals
	GetTotalUsers(ctx context.Context) (int64, error)
	GetTotalTeams(ctx context.Context) (int64, error)
	GetActiveUsers(ctx context.Context, days int) (int64, error)

	// Cycle progress
	GetFeedbackCompletionRate(ctx context.Context, cycleID uint) (float64, error)
	GetAssessmentSubmissionRate(ctx context.Context, cycleID uint) (float64, error)
	GetAverageRatingByTeam(ctx context.Context, cycleID uint) ([]TeamRatingData, error)

	// Recent activity feed
	GetRecentActivities(ctx context.Context, limit int) ([]RecentActivityData, error)

	// Per-user rollup for manager views
	GetUserCycleSummary(ctx context.Context, userID string, cycleID uint) (*UserCycleSummary, error)
}

// Data structures for dashboard responses

type TeamRatingData struct {
	TeamID        uint    `json:"team_id"`
	TeamName      string  `json:"team_name"`
	AverageRating float64 `json:"average_rating"`
	FeedbackCount int64   `json:"feedback_count"`
}

type RecentActivityData struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Action    string    `json:"action"`
	CycleID   *uint     `json:"cycle_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type UserCycleSummary struct {
	UserID              string                       `json:"user_id"`
	CycleID             uint                         `json:"cycle_id"`
	FeedbackReceived    int64                        `json:"feedback_received"`
	FeedbackGiven       int64                        `json:"feedback_given"`
	PendingRequests     int64                        `json:"pending_requests"`
	AverageRating       *float64                     `json:"average_rating,omitempty"`
	AssessmentStatus    *models.SelfAssessmentStatus `json:"assessment_status,omitempty"`
	AssessmentSubmitted *time.Time                   `json:"assessment_submitted,omitempty"`
}
