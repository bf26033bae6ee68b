package repositories

import (
	"context"

	"github.com/reviewloop/review-service/internal/models"
)

// SelfAssessmentRepository interface for self-assessment operations
type SelfAssessmentRepository interface {
	Create(ctx context.Context, assessment *models.SelfAssessment) error
	Update(ctx context.Context, assessment *models.SelfAssessment) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.SelfAssessment, error)
	GetByUserAndCycle(ctx context.Context, userID string, cycleID uint) (*models.SelfAssessment, error)
	ListByCycle(ctx context.Context, cycleID uint, limit, offset int) ([]*models.SelfAssessment, int64, error)
	ListByUser(ctx context.Context, userID string) ([]*models.SelfAssessment, error)

	CountByStatus(ctx context.Context, cycleID uint, status models.SelfAssessmentStatus) (int64, error)
}
