package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/cache"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

type ReviewCyclePostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewReviewCyclePostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.ReviewCycleRepository {
	return &ReviewCyclePostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create creates a new review cycle and invalidates cache
func (r *ReviewCyclePostgreSQL) Create(ctx context.Context, cycle *models.ReviewCycle) error {
	if err := r.db.WithContext(ctx).Create(cycle).Error; err != nil {
		return fmt.Errorf("failed to create review cycle: %w", err)
	}

	cache.InvalidateCycleCache(ctx, r.cacheManager, cycle.ID)

	return nil
}

// GetByID retrieves a review cycle by ID with caching
func (r *ReviewCyclePostgreSQL) GetByID(ctx context.Context, id uint) (*models.ReviewCycle, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var cycle models.ReviewCycle

	err := r.cacheManager.Cycle.CacheOrExecute(ctx, cacheKey, &cycle, cache.CycleCacheConfig.TTL, func() (interface{}, error) {
		var dbCycle models.ReviewCycle
		if err := r.db.WithContext(ctx).First(&dbCycle, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("review cycle not found with ID %d: %w", id, repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get review cycle: %w", err)
		}
		return &dbCycle, nil
	})

	if err != nil {
		return nil, err
	}

	return &cycle, nil
}

// GetOpen retrieves the currently open cycle. At most one cycle is open at
// any time; opening a second one is rejected by the cycle service.
func (r *ReviewCyclePostgreSQL) GetOpen(ctx context.Context) (*models.ReviewCycle, error) {
	var cycle models.ReviewCycle

	err := r.cacheManager.Cycle.CacheOrExecute(ctx, "open", &cycle, cache.CycleCacheConfig.TTL, func() (interface{}, error) {
		var dbCycle models.ReviewCycle
		if err := r.db.WithContext(ctx).
			Where("status = ?", models.CycleOpen).
			First(&dbCycle).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("no open review cycle: %w", repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get open review cycle: %w", err)
		}
		return &dbCycle, nil
	})

	if err != nil {
		return nil, err
	}

	return &cycle, nil
}

// Update updates a review cycle
func (r *ReviewCyclePostgreSQL) Update(ctx context.Context, cycle *models.ReviewCycle) error {
	if err := r.db.WithContext(ctx).Save(cycle).Error; err != nil {
		return fmt.Errorf("failed to update review cycle: %w", err)
	}

	cache.InvalidateCycleCache(ctx, r.cacheManager, cycle.ID)

	return nil
}

// Delete soft deletes a review cycle
func (r *ReviewCyclePostgreSQL) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.ReviewCycle{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete review cycle: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("review cycle not found with ID %d: %w", id, repositories.ErrNotFound)
	}

	cache.InvalidateCycleCache(ctx, r.cacheManager, id)

	return nil
}

// List retrieves review cycles with filtering and pagination
func (r *ReviewCyclePostgreSQL) List(ctx context.Context, filters repositories.CycleFilters) ([]*models.ReviewCycle, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReviewCycle{})

	query = r.helpers.ApplyCycleFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count review cycles: %w", err)
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "start_date"
	}
	query = r.helpers.ApplyPaginationAndSort(query, sortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var cycles []*models.ReviewCycle
	if err := query.Find(&cycles).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list review cycles: %w", err)
	}

	return cycles, total, nil
}

// ExistsByName checks whether a cycle name is already taken
func (r *ReviewCyclePostgreSQL) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ReviewCycle{}).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check review cycle name: %w", err)
	}

	return count > 0, nil
}
