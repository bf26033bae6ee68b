package repositories

import (
	"context"

	"github.com/reviewloop/review-service/internal/models"
)

// CycleFilters defines filters for review cycle queries
type CycleFilters struct {
	Status    *models.CycleStatus `json:"status"`
	Limit     int                 `json:"limit"`
	Offset    int                 `json:"offset"`
	SortBy    string              `json:"sort_by"`    // "created_at", "start_date", "name"
	SortOrder string              `json:"sort_order"` // "asc", "desc"
}

// ReviewCycleRepository interface for review cycle operations
type ReviewCycleRepository interface {
	Create(ctx context.Context, cycle *models.ReviewCycle) error
	Update(ctx context.Context, cycle *models.ReviewCycle) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.ReviewCycle, error)
	List(ctx context.Context, filters CycleFilters) ([]*models.ReviewCycle, int64, error)

	// GetOpen returns the currently open cycle, ErrRecordNotFound when none.
	GetOpen(ctx context.Context) (*models.ReviewCycle, error)

	ExistsByName(ctx context.Context, name string) (bool, error)
}
