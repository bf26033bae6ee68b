package repositories

import (
	"context"

	"github.com/reviewloop/review-service/internal/models"
)

// FeedbackRequestFilters defines filters for feedback request queries
type FeedbackRequestFilters struct {
	CycleID    *uint                         `json:"cycle_id"`
	ReviewerID *string                       `json:"reviewer_id"`
	RevieweeID *string                       `json:"reviewee_id"`
	Kind       *models.FeedbackKind          `json:"kind"`
	Status     *models.FeedbackRequestStatus `json:"status"`
	Limit      int                           `json:"limit"`
	Offset     int                           `json:"offset"`
	SortBy     string                        `json:"sort_by"`
	SortOrder  string                        `json:"sort_order"`
}

// FeedbackFilters defines filters for submitted feedback queries
type FeedbackFilters struct {
	CycleID    *uint                `json:"cycle_id"`
	ReviewerID *string              `json:"reviewer_id"`
	RevieweeID *string              `json:"reviewee_id"`
	Kind       *models.FeedbackKind `json:"kind"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
	SortBy     string               `json:"sort_by"`
	SortOrder  string               `json:"sort_order"`
}

// FeedbackRequestRepository interface for feedback request operations
type FeedbackRequestRepository interface {
	Create(ctx context.Context, request *models.FeedbackRequest) error
	Update(ctx context.Context, request *models.FeedbackRequest) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.FeedbackRequest, error)
	List(ctx context.Context, filters FeedbackRequestFilters) ([]*models.FeedbackRequest, int64, error)

	// Exists reports whether a request of this kind already pairs the
	// reviewer and reviewee within the cycle.
	Exists(ctx context.Context, cycleID uint, reviewerID, revieweeID string, kind models.FeedbackKind) (bool, error)

	CountByStatus(ctx context.Context, cycleID uint, status models.FeedbackRequestStatus) (int64, error)
}

// FeedbackRepository interface for submitted feedback operations
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.Feedback) error

	GetByID(ctx context.Context, id uint) (*models.Feedback, error)
	GetByRequestID(ctx context.Context, requestID uint) (*models.Feedback, error)
	List(ctx context.Context, filters FeedbackFilters) ([]*models.Feedback, int64, error)
	ListForReviewee(ctx context.Context, revieweeID string, cycleID uint) ([]*models.Feedback, error)

	// AverageRating computes the mean rating received by a user in a cycle;
	// ok is false when no feedback exists.
	AverageRating(ctx context.Context, revieweeID string, cycleID uint) (float64, bool, error)
}
