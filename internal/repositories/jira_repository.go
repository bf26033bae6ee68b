package repositories

import (
	"context"

	"github.com/reviewloop/review-service/internal/models"
)

// JiraStatRepository interface for cached Jira statistics
type JiraStatRepository interface {
	// Upsert replaces the row for the user and period.
	Upsert(ctx context.Context, stat *models.JiraUserStat) error

	GetByUserAndPeriod(ctx context.Context, userID, period string) (*models.JiraUserStat, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.JiraUserStat, error)
	ListByPeriod(ctx context.Context, period string) ([]*models.JiraUserStat, error)

	DeleteByUser(ctx context.Context, userID string) error
}
