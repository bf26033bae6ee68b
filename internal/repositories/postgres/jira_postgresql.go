package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

type JiraStatPostgreSQL struct {
	db *gorm.DB
}

func NewJiraStatPostgreSQL(db *gorm.DB) repositories.JiraStatRepository {
	return &JiraStatPostgreSQL{db: db}
}

// Upsert replaces the row for the user and period
func (j *JiraStatPostgreSQL) Upsert(ctx context.Context, stat *models.JiraUserStat) error {
	if err := j.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "period"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"issues_created", "issues_resolved", "issues_in_progress",
				"story_points", "raw_payload", "synced_at", "updated_at",
			}),
		}).
		Create(stat).Error; err != nil {
		return fmt.Errorf("failed to upsert jira stats: %w", err)
	}

	return nil
}

// GetByUserAndPeriod retrieves cached stats for a user and monthly period
func (j *JiraStatPostgreSQL) GetByUserAndPeriod(ctx context.Context, userID, period string) (*models.JiraUserStat, error) {
	var stat models.JiraUserStat
	if err := j.db.WithContext(ctx).
		First(&stat, "user_id = ? AND period = ?", userID, period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("jira stats not found for user %s in period %s: %w", userID, period, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get jira stats: %w", err)
	}

	return &stat, nil
}

// ListByUser retrieves the most recent periods for a user
func (j *JiraStatPostgreSQL) ListByUser(ctx context.Context, userID string, limit int) ([]*models.JiraUserStat, error) {
	query := j.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("period DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	var stats []*models.JiraUserStat
	if err := query.Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to list jira stats by user: %w", err)
	}

	return stats, nil
}

// ListByPeriod retrieves all user stats for one monthly period
func (j *JiraStatPostgreSQL) ListByPeriod(ctx context.Context, period string) ([]*models.JiraUserStat, error) {
	var stats []*models.JiraUserStat
	if err := j.db.WithContext(ctx).
		Where("period = ?", period).
		Order("user_id ASC").
		Preload("User").
		Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to list jira stats by period: %w", err)
	}

	return stats, nil
}

// DeleteByUser removes all cached stats for a user
func (j *JiraStatPostgreSQL) DeleteByUser(ctx context.Context, userID string) error {
	if err := j.db.WithContext(ctx).
		Delete(&models.JiraUserStat{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("failed to delete jira stats for user: %w", err)
	}

	return nil
}
