package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/cache"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

type SelfAssessmentPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewSelfAssessmentPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.SelfAssessmentRepository {
	return &SelfAssessmentPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create creates a new self-assessment
func (s *SelfAssessmentPostgreSQL) Create(ctx context.Context, assessment *models.SelfAssessment) error {
	if err := s.db.WithContext(ctx).Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create self-assessment: %w", err)
	}

	cache.InvalidateCycleStats(ctx, s.cacheManager, assessment.CycleID)

	return nil
}

// GetByID retrieves a self-assessment by ID
func (s *SelfAssessmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.SelfAssessment, error) {
	var assessment models.SelfAssessment
	if err := s.db.WithContext(ctx).First(&assessment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("self-assessment not found with ID %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get self-assessment: %w", err)
	}

	return &assessment, nil
}

// GetByUserAndCycle retrieves the user's assessment for a cycle. Each user
// has at most one per cycle.
func (s *SelfAssessmentPostgreSQL) GetByUserAndCycle(ctx context.Context, userID string, cycleID uint) (*models.SelfAssessment, error) {
	var assessment models.SelfAssessment
	if err := s.db.WithContext(ctx).
		First(&assessment, "user_id = ? AND cycle_id = ?", userID, cycleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("self-assessment not found for user %s in cycle %d: %w", userID, cycleID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get self-assessment: %w", err)
	}

	return &assessment, nil
}

// Update updates a self-assessment
func (s *SelfAssessmentPostgreSQL) Update(ctx context.Context, assessment *models.SelfAssessment) error {
	if err := s.db.WithContext(ctx).Save(assessment).Error; err != nil {
		return fmt.Errorf("failed to update self-assessment: %w", err)
	}

	cache.InvalidateCycleStats(ctx, s.cacheManager, assessment.CycleID)

	return nil
}

// Delete soft deletes a self-assessment
func (s *SelfAssessmentPostgreSQL) Delete(ctx context.Context, id uint) error {
	// Load the cycle before deleting for stats invalidation
	var assessment models.SelfAssessment
	if err := s.db.WithContext(ctx).Select("id, cycle_id").First(&assessment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("self-assessment not found with ID %d: %w", id, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to get self-assessment before delete: %w", err)
	}

	if err := s.db.WithContext(ctx).Delete(&models.SelfAssessment{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete self-assessment: %w", err)
	}

	cache.InvalidateCycleStats(ctx, s.cacheManager, assessment.CycleID)

	return nil
}

// ListByCycle retrieves self-assessments in a cycle with pagination
func (s *SelfAssessmentPostgreSQL) ListByCycle(ctx context.Context, cycleID uint, limit, offset int) ([]*models.SelfAssessment, int64, error) {
	query := s.db.WithContext(ctx).
		Model(&models.SelfAssessment{}).
		Where("cycle_id = ?", cycleID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count self-assessments: %w", err)
	}

	query = s.helpers.ApplyPaginationAndSort(query, "updated_at", "desc", limit, offset)

	var assessments []*models.SelfAssessment
	if err := query.
		Preload("User").
		Find(&assessments).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list self-assessments: %w", err)
	}

	return assessments, total, nil
}

// ListByUser retrieves a user's self-assessments across cycles
func (s *SelfAssessmentPostgreSQL) ListByUser(ctx context.Context, userID string) ([]*models.SelfAssessment, error) {
	var assessments []*models.SelfAssessment
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Preload("Cycle").
		Find(&assessments).Error; err != nil {
		return nil, fmt.Errorf("failed to list self-assessments by user: %w", err)
	}

	return assessments, nil
}

// CountByStatus counts self-assessments in a cycle by status
func (s *SelfAssessmentPostgreSQL) CountByStatus(ctx context.Context, cycleID uint, status models.SelfAssessmentStatus) (int64, error) {
	count, err := s.helpers.CountAssessmentsByStatus(ctx, cycleID, status)
	if err != nil {
		return 0, fmt.Errorf("failed to count self-assessments: %w", err)
	}
	return count, nil
}
