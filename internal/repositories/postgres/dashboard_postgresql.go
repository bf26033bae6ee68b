package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/cache"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

type dashboardPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewDashboardPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.DashboardRepository {
	return &dashboardPostgreSQL{
		db:           db,
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// ===== ORG-WIDE TOTALS =====

func (r *dashboardPostgreSQL) GetTotalUsers(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("active = ?", true).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total users: %w", err)
	}

	return count, nil
}

func (r *dashboardPostgreSQL) GetTotalTeams(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).
		Model(&models.Team{}).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get total teams: %w", err)
	}

	return count, nil
}

// GetActiveUsers counts distinct users with session activity in the window
func (r *dashboardPostgreSQL) GetActiveUsers(ctx context.Context, days int) (int64, error) {
	var count int64

	startDate := time.Now().AddDate(0, 0, -days)

	if err := r.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("last_activity_at >= ?", startDate).
		Distinct("user_id").
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to get active users: %w", err)
	}

	return count, nil
}

// ===== CYCLE PROGRESS =====

// GetFeedbackCompletionRate returns the percentage of feedback requests in
// the cycle that have been submitted
func (r *dashboardPostgreSQL) GetFeedbackCompletionRate(ctx context.Context, cycleID uint) (float64, error) {
	cacheKey := fmt.Sprintf("cycle:%d:completion", cycleID)
	var rate float64

	err := r.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &rate, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var total int64
		var submitted int64

		if err := r.db.WithContext(ctx).
			Model(&models.FeedbackRequest{}).
			Where("cycle_id = ?", cycleID).
			Count(&total).Error; err != nil {
			return nil, fmt.Errorf("failed to count feedback requests: %w", err)
		}

		if total == 0 {
			return float64(0), nil
		}

		if err := r.db.WithContext(ctx).
			Model(&models.FeedbackRequest{}).
			Where("cycle_id = ? AND status = ?", cycleID, models.RequestSubmitted).
			Count(&submitted).Error; err != nil {
			return nil, fmt.Errorf("failed to count submitted requests: %w", err)
		}

		return float64(submitted) / float64(total) * 100, nil
	})

	return rate, err
}

// GetAssessmentSubmissionRate returns the percentage of active users who
// submitted their self-assessment for the cycle
func (r *dashboardPostgreSQL) GetAssessmentSubmissionRate(ctx context.Context, cycleID uint) (float64, error) {
	cacheKey := fmt.Sprintf("cycle:%d:submission", cycleID)
	var rate float64

	err := r.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &rate, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var users int64
		var submitted int64

		if err := r.db.WithContext(ctx).
			Model(&models.User{}).
			Where("active = ?", true).
			Count(&users).Error; err != nil {
			return nil, fmt.Errorf("failed to count active users: %w", err)
		}

		if users == 0 {
			return float64(0), nil
		}

		if err := r.db.WithContext(ctx).
			Model(&models.SelfAssessment{}).
			Where("cycle_id = ? AND status = ?", cycleID, models.AssessmentSubmitted).
			Count(&submitted).Error; err != nil {
			return nil, fmt.Errorf("failed to count submitted assessments: %w", err)
		}

		return float64(submitted) / float64(users) * 100, nil
	})

	return rate, err
}

// GetAverageRatingByTeam aggregates received feedback ratings per team
func (r *dashboardPostgreSQL) GetAverageRatingByTeam(ctx context.Context, cycleID uint) ([]repositories.TeamRatingData, error) {
	cacheKey := fmt.Sprintf("cycle:%d:team_ratings", cycleID)
	var ratings []repositories.TeamRatingData

	err := r.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &ratings, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var results []struct {
			TeamID        uint
			TeamName      string
			AverageRating float64
			FeedbackCount int64
		}

		if err := r.db.WithContext(ctx).
			Table("feedback").
			Select("teams.id as team_id, teams.name as team_name, "+
				"AVG(feedback.rating) as average_rating, "+
				"COUNT(feedback.id) as feedback_count").
			Joins("JOIN users ON feedback.reviewee_id = users.id").
			Joins("JOIN teams ON users.team_id = teams.id").
			Where("feedback.cycle_id = ? AND feedback.deleted_at IS NULL", cycleID).
			Group("teams.id, teams.name").
			Order("average_rating DESC").
			Scan(&results).Error; err != nil {
			return nil, fmt.Errorf("failed to get team ratings: %w", err)
		}

		data := make([]repositories.TeamRatingData, 0, len(results))
		for _, row := range results {
			data = append(data, repositories.TeamRatingData{
				TeamID:        row.TeamID,
				TeamName:      row.TeamName,
				AverageRating: row.AverageRating,
				FeedbackCount: row.FeedbackCount,
			})
		}

		return data, nil
	})

	return ratings, err
}

// ===== RECENT ACTIVITIES =====

// GetRecentActivities merges recent feedback and assessment submissions into
// one feed, newest first
func (r *dashboardPostgreSQL) GetRecentActivities(ctx context.Context, limit int) ([]repositories.RecentActivityData, error) {
	cacheKey := fmt.Sprintf("dashboard:recent:%d", limit)
	var activities []repositories.RecentActivityData

	err := r.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &activities, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var merged []repositories.RecentActivityData

		var feedback []struct {
			ID          uint
			ReviewerID  string
			CycleID     uint
			SubmittedAt time.Time
			UserName    string
		}

		if err := r.db.WithContext(ctx).
			Table("feedback").
			Select("feedback.id, feedback.reviewer_id, feedback.cycle_id, feedback.submitted_at, "+
				"users.full_name as user_name").
			Joins("LEFT JOIN users ON feedback.reviewer_id = users.id").
			Where("feedback.deleted_at IS NULL").
			Order("feedback.submitted_at DESC").
			Limit(limit).
			Scan(&feedback).Error; err != nil {
			return nil, fmt.Errorf("failed to get recent feedback activity: %w", err)
		}

		for _, row := range feedback {
			cycleID := row.CycleID
			merged = append(merged, repositories.RecentActivityData{
				ID:        row.ID,
				UserID:    row.ReviewerID,
				UserName:  row.UserName,
				Action:    "submitted_feedback",
				CycleID:   &cycleID,
				CreatedAt: row.SubmittedAt,
			})
		}

		var assessments []struct {
			ID          uint
			UserID      string
			CycleID     uint
			SubmittedAt time.Time
			UserName    string
		}

		if err := r.db.WithContext(ctx).
			Table("self_assessments").
			Select("self_assessments.id, self_assessments.user_id, self_assessments.cycle_id, "+
				"self_assessments.submitted_at, users.full_name as user_name").
			Joins("LEFT JOIN users ON self_assessments.user_id = users.id").
			Where("self_assessments.status = ? AND self_assessments.deleted_at IS NULL", models.AssessmentSubmitted).
			Order("self_assessments.submitted_at DESC").
			Limit(limit).
			Scan(&assessments).Error; err != nil {
			return nil, fmt.Errorf("failed to get recent assessment activity: %w", err)
		}

		for _, row := range assessments {
			cycleID := row.CycleID
			merged = append(merged, repositories.RecentActivityData{
				ID:        row.ID,
				UserID:    row.UserID,
				UserName:  row.UserName,
				Action:    "submitted_assessment",
				CycleID:   &cycleID,
				CreatedAt: row.SubmittedAt,
			})
		}

		sort.Slice(merged, func(i, j int) bool {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		})
		if len(merged) > limit {
			merged = merged[:limit]
		}

		return merged, nil
	})

	return activities, err
}

// ===== PER-USER ROLLUP =====

func (r *dashboardPostgreSQL) GetUserCycleSummary(ctx context.Context, userID string, cycleID uint) (*repositories.UserCycleSummary, error) {
	summary := &repositories.UserCycleSummary{
		UserID:  userID,
		CycleID: cycleID,
	}

	if err := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Where("reviewee_id = ? AND cycle_id = ?", userID, cycleID).
		Count(&summary.FeedbackReceived).Error; err != nil {
		return nil, fmt.Errorf("failed to count received feedback: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Where("reviewer_id = ? AND cycle_id = ?", userID, cycleID).
		Count(&summary.FeedbackGiven).Error; err != nil {
		return nil, fmt.Errorf("failed to count given feedback: %w", err)
	}

	if err := r.db.WithContext(ctx).
		Model(&models.FeedbackRequest{}).
		Where("reviewer_id = ? AND cycle_id = ? AND status = ?", userID, cycleID, models.RequestPending).
		Count(&summary.PendingRequests).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending requests: %w", err)
	}

	if summary.FeedbackReceived > 0 {
		var result struct {
			AvgRating float64
		}
		if err := r.db.WithContext(ctx).
			Model(&models.Feedback{}).
			Where("reviewee_id = ? AND cycle_id = ?", userID, cycleID).
			Select("AVG(rating) as avg_rating").
			Scan(&result).Error; err != nil {
			return nil, fmt.Errorf("failed to get average rating: %w", err)
		}
		summary.AverageRating = &result.AvgRating
	}

	var assessment models.SelfAssessment
	err := r.db.WithContext(ctx).
		Select("status, submitted_at").
		First(&assessment, "user_id = ? AND cycle_id = ?", userID, cycleID).Error
	if err == nil {
		summary.AssessmentStatus = &assessment.Status
		summary.AssessmentSubmitted = assessment.SubmittedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get assessment status: %w", err)
	}

	return summary, nil
}
