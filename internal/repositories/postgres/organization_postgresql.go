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

// ===== TEAM REPOSITORY =====

type TeamPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewTeamPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.TeamRepository {
	return &TeamPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create creates a new team and invalidates org caches
func (t *TeamPostgreSQL) Create(ctx context.Context, team *models.Team) error {
	if err := t.db.WithContext(ctx).Create(team).Error; err != nil {
		return fmt.Errorf("failed to create team: %w", err)
	}

	cache.InvalidateOrgCache(ctx, t.cacheManager)

	return nil
}

// GetByID retrieves a team by ID with caching
func (t *TeamPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Team, error) {
	cacheKey := fmt.Sprintf("team:id:%d", id)
	var team models.Team

	err := t.cacheManager.Org.CacheOrExecute(ctx, cacheKey, &team, cache.OrgCacheConfig.TTL, func() (interface{}, error) {
		var dbTeam models.Team
		if err := t.db.WithContext(ctx).First(&dbTeam, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("team not found with ID %d: %w", id, repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get team: %w", err)
		}
		return &dbTeam, nil
	})

	if err != nil {
		return nil, err
	}

	return &team, nil
}

// GetByIDWithMembers retrieves a team together with its members
func (t *TeamPostgreSQL) GetByIDWithMembers(ctx context.Context, id uint) (*models.Team, []*models.User, error) {
	var team models.Team
	if err := t.db.WithContext(ctx).
		Preload("BusinessUnit").
		Preload("Lead").
		First(&team, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("team not found with ID %d: %w", id, repositories.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to get team with members: %w", err)
	}

	var members []*models.User
	if err := t.db.WithContext(ctx).
		Where("team_id = ?", id).
		Order("full_name ASC").
		Find(&members).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to get team members: %w", err)
	}

	team.MemberCount = len(members)

	return &team, members, nil
}

// Update updates a team
func (t *TeamPostgreSQL) Update(ctx context.Context, team *models.Team) error {
	if err := t.db.WithContext(ctx).Save(team).Error; err != nil {
		return fmt.Errorf("failed to update team: %w", err)
	}

	cache.InvalidateOrgCache(ctx, t.cacheManager)

	return nil
}

// Delete soft deletes a team, detaching its members first
func (t *TeamPostgreSQL) Delete(ctx context.Context, id uint) error {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Detach members before removing the team
		if err := tx.Model(&models.User{}).
			Where("team_id = ?", id).
			Update("team_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach team members: %w", err)
		}

		result := tx.Delete(&models.Team{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete team: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("team not found with ID %d: %w", id, repositories.ErrNotFound)
		}

		return nil
	})

	if err != nil {
		return err
	}

	cache.InvalidateOrgCache(ctx, t.cacheManager)
	cache.SafeInvalidatePattern(ctx, t.cacheManager.User, "list:*")

	return nil
}

// List retrieves teams with filtering and pagination
func (t *TeamPostgreSQL) List(ctx context.Context, filters repositories.TeamFilters) ([]*models.Team, int64, error) {
	query := t.db.WithContext(ctx).Model(&models.Team{})

	query = t.applyTeamFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count teams: %w", err)
	}

	query = t.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var teams []*models.Team
	if err := query.Find(&teams).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}

	return teams, total, nil
}

// ExistsByName checks whether a team name is already used within a business unit
func (t *TeamPostgreSQL) ExistsByName(ctx context.Context, businessUnitID uint, name string) (bool, error) {
	var count int64
	if err := t.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("business_unit_id = ? AND LOWER(name) = ?", businessUnitID, strings.ToLower(name)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check team name: %w", err)
	}

	return count > 0, nil
}

// MemberCount counts the users assigned to a team
func (t *TeamPostgreSQL) MemberCount(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := t.db.WithContext(ctx).
		Model(&models.User{}).
		Where("team_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count team members: %w", err)
	}

	return count, nil
}

func (t *TeamPostgreSQL) applyTeamFilters(query *gorm.DB, filters repositories.TeamFilters) *gorm.DB {
	if filters.BusinessUnitID != nil {
		query = query.Where("business_unit_id = ?", *filters.BusinessUnitID)
	}
	if filters.Query != "" {
		term := "%" + strings.ToLower(filters.Query) + "%"
		query = query.Where("LOWER(name) LIKE ?", term)
	}
	return query
}

// ===== BUSINESS UNIT REPOSITORY =====

type BusinessUnitPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewBusinessUnitPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.BusinessUnitRepository {
	return &BusinessUnitPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create creates a new business unit
func (b *BusinessUnitPostgreSQL) Create(ctx context.Context, unit *models.BusinessUnit) error {
	if err := b.db.WithContext(ctx).Create(unit).Error; err != nil {
		return fmt.Errorf("failed to create business unit: %w", err)
	}

	cache.InvalidateOrgCache(ctx, b.cacheManager)

	return nil
}

// GetByID retrieves a business unit by ID with caching
func (b *BusinessUnitPostgreSQL) GetByID(ctx context.Context, id uint) (*models.BusinessUnit, error) {
	cacheKey := fmt.Sprintf("bu:id:%d", id)
	var unit models.BusinessUnit

	err := b.cacheManager.Org.CacheOrExecute(ctx, cacheKey, &unit, cache.OrgCacheConfig.TTL, func() (interface{}, error) {
		var dbUnit models.BusinessUnit
		if err := b.db.WithContext(ctx).First(&dbUnit, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("business unit not found with ID %d: %w", id, repositories.ErrNotFound)
			}
			return nil, fmt.Errorf("failed to get business unit: %w", err)
		}
		return &dbUnit, nil
	})

	if err != nil {
		return nil, err
	}

	return &unit, nil
}

// GetByIDWithTeams retrieves a business unit with its teams preloaded
func (b *BusinessUnitPostgreSQL) GetByIDWithTeams(ctx context.Context, id uint) (*models.BusinessUnit, error) {
	var unit models.BusinessUnit
	if err := b.db.WithContext(ctx).
		Preload("Teams").
		First(&unit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("business unit not found with ID %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get business unit with teams: %w", err)
	}

	return &unit, nil
}

// Update updates a business unit
func (b *BusinessUnitPostgreSQL) Update(ctx context.Context, unit *models.BusinessUnit) error {
	if err := b.db.WithContext(ctx).Save(unit).Error; err != nil {
		return fmt.Errorf("failed to update business unit: %w", err)
	}

	cache.InvalidateOrgCache(ctx, b.cacheManager)

	return nil
}

// Delete soft deletes a business unit
func (b *BusinessUnitPostgreSQL) Delete(ctx context.Context, id uint) error {
	result := b.db.WithContext(ctx).Delete(&models.BusinessUnit{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete business unit: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("business unit not found with ID %d: %w", id, repositories.ErrNotFound)
	}

	cache.InvalidateOrgCache(ctx, b.cacheManager)

	return nil
}

// List retrieves business units with pagination
func (b *BusinessUnitPostgreSQL) List(ctx context.Context, limit, offset int) ([]*models.BusinessUnit, int64, error) {
	query := b.db.WithContext(ctx).Model(&models.BusinessUnit{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count business units: %w", err)
	}

	query = query.Order("name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var units []*models.BusinessUnit
	if err := query.Find(&units).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list business units: %w", err)
	}

	return units, total, nil
}

// ExistsByName checks whether a business unit name is already taken
func (b *BusinessUnitPostgreSQL) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := b.db.WithContext(ctx).
		Model(&models.BusinessUnit{}).
		Where("LOWER(name) = ?", strings.ToLower(name)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check business unit name: %w", err)
	}

	return count > 0, nil
}

// TeamCount counts the teams belonging to a business unit
func (b *BusinessUnitPostgreSQL) TeamCount(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := b.db.WithContext(ctx).
		Model(&models.Team{}).
		Where("business_unit_id = ?", id).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}

	return count, nil
}
