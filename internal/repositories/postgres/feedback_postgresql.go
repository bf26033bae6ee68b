package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/cache"
	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

// ===== FEEDBACK REQUEST REPOSITORY =====

type FeedbackRequestPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewFeedbackRequestPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.FeedbackRequestRepository {
	return &FeedbackRequestPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create creates a new feedback request
func (f *FeedbackRequestPostgreSQL) Create(ctx context.Context, request *models.FeedbackRequest) error {
	if err := f.db.WithContext(ctx).Create(request).Error; err != nil {
		return fmt.Errorf("failed to create feedback request: %w", err)
	}

	cache.InvalidateCycleStats(ctx, f.cacheManager, request.CycleID)

	return nil
}

// GetByID retrieves a feedback request with reviewer and reviewee loaded
func (f *FeedbackRequestPostgreSQL) GetByID(ctx context.Context, id uint) (*models.FeedbackRequest, error) {
	var request models.FeedbackRequest
	if err := f.db.WithContext(ctx).
		Preload("Reviewer").
		Preload("Reviewee").
		Preload("Cycle").
		First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("feedback request not found with ID %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get feedback request: %w", err)
	}

	markOverdue(time.Now(), &request)

	return &request, nil
}

// Update updates a feedback request
func (f *FeedbackRequestPostgreSQL) Update(ctx context.Context, request *models.FeedbackRequest) error {
	if err := f.db.WithContext(ctx).Save(request).Error; err != nil {
		return fmt.Errorf("failed to update feedback request: %w", err)
	}

	cache.InvalidateCycleStats(ctx, f.cacheManager, request.CycleID)

	return nil
}

// Delete soft deletes a feedback request
func (f *FeedbackRequestPostgreSQL) Delete(ctx context.Context, id uint) error {
	// Load the cycle before deleting for stats invalidation
	var request models.FeedbackRequest
	if err := f.db.WithContext(ctx).Select("id, cycle_id").First(&request, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("feedback request not found with ID %d: %w", id, repositories.ErrNotFound)
		}
		return fmt.Errorf("failed to get feedback request before delete: %w", err)
	}

	if err := f.db.WithContext(ctx).Delete(&models.FeedbackRequest{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete feedback request: %w", err)
	}

	cache.InvalidateCycleStats(ctx, f.cacheManager, request.CycleID)

	return nil
}

// List retrieves feedback requests with filtering and pagination
func (f *FeedbackRequestPostgreSQL) List(ctx context.Context, filters repositories.FeedbackRequestFilters) ([]*models.FeedbackRequest, int64, error) {
	query := f.db.WithContext(ctx).Model(&models.FeedbackRequest{})

	query = f.helpers.ApplyFeedbackRequestFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count feedback requests: %w", err)
	}

	query = f.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var requests []*models.FeedbackRequest
	if err := query.
		Preload("Reviewer").
		Preload("Reviewee").
		Find(&requests).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list feedback requests: %w", err)
	}

	now := time.Now()
	for _, request := range requests {
		markOverdue(now, request)
	}

	return requests, total, nil
}

// Exists reports whether a request of this kind already pairs the reviewer
// and reviewee within the cycle. A declined request does not block a new one.
func (f *FeedbackRequestPostgreSQL) Exists(ctx context.Context, cycleID uint, reviewerID, revieweeID string, kind models.FeedbackKind) (bool, error) {
	var count int64
	if err := f.db.WithContext(ctx).
		Model(&models.FeedbackRequest{}).
		Where("cycle_id = ? AND reviewer_id = ? AND reviewee_id = ? AND kind = ?", cycleID, reviewerID, revieweeID, kind).
		Where("status IN ?", []models.FeedbackRequestStatus{models.RequestPending, models.RequestSubmitted}).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check feedback request existence: %w", err)
	}

	return count > 0, nil
}

// CountByStatus counts requests in a cycle by status
func (f *FeedbackRequestPostgreSQL) CountByStatus(ctx context.Context, cycleID uint, status models.FeedbackRequestStatus) (int64, error) {
	count, err := f.helpers.CountRequestsByStatus(ctx, cycleID, status)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback requests: %w", err)
	}
	return count, nil
}

// markOverdue fills the computed overdue flag for pending requests past
// their due date.
func markOverdue(now time.Time, request *models.FeedbackRequest) {
	request.Overdue = request.Status == models.RequestPending &&
		request.DueDate != nil &&
		now.After(*request.DueDate)
}

// ===== FEEDBACK REPOSITORY =====

type FeedbackPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewFeedbackPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.FeedbackRepository {
	return &FeedbackPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// Create persists submitted feedback
func (f *FeedbackPostgreSQL) Create(ctx context.Context, feedback *models.Feedback) error {
	if err := f.db.WithContext(ctx).Create(feedback).Error; err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	cache.InvalidateCycleStats(ctx, f.cacheManager, feedback.CycleID)

	return nil
}

// GetByID retrieves feedback by ID
func (f *FeedbackPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := f.db.WithContext(ctx).
		Preload("Reviewer").
		Preload("Reviewee").
		First(&feedback, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("feedback not found with ID %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}

	return &feedback, nil
}

// GetByRequestID retrieves the feedback submitted for a request
func (f *FeedbackPostgreSQL) GetByRequestID(ctx context.Context, requestID uint) (*models.Feedback, error) {
	var feedback models.Feedback
	if err := f.db.WithContext(ctx).
		First(&feedback, "request_id = ?", requestID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("feedback not found for request %d: %w", requestID, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get feedback by request: %w", err)
	}

	return &feedback, nil
}

// List retrieves feedback with filtering and pagination
func (f *FeedbackPostgreSQL) List(ctx context.Context, filters repositories.FeedbackFilters) ([]*models.Feedback, int64, error) {
	query := f.db.WithContext(ctx).Model(&models.Feedback{})

	query = f.helpers.ApplyFeedbackFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count feedback: %w", err)
	}

	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "submitted_at"
	}
	query = f.helpers.ApplyPaginationAndSort(query, sortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var feedback []*models.Feedback
	if err := query.
		Preload("Reviewer").
		Find(&feedback).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list feedback: %w", err)
	}

	return feedback, total, nil
}

// ListForReviewee retrieves all feedback received by a user in a cycle
func (f *FeedbackPostgreSQL) ListForReviewee(ctx context.Context, revieweeID string, cycleID uint) ([]*models.Feedback, error) {
	var feedback []*models.Feedback
	if err := f.db.WithContext(ctx).
		Where("reviewee_id = ? AND cycle_id = ?", revieweeID, cycleID).
		Order("submitted_at DESC").
		Preload("Reviewer").
		Find(&feedback).Error; err != nil {
		return nil, fmt.Errorf("failed to list feedback for reviewee: %w", err)
	}

	return feedback, nil
}

// AverageRating computes the mean rating a user received in a cycle
func (f *FeedbackPostgreSQL) AverageRating(ctx context.Context, revieweeID string, cycleID uint) (float64, bool, error) {
	var result struct {
		AvgRating float64
		Count     int64
	}

	if err := f.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Where("reviewee_id = ? AND cycle_id = ?", revieweeID, cycleID).
		Select("COALESCE(AVG(rating), 0) as avg_rating, COUNT(*) as count").
		Scan(&result).Error; err != nil {
		return 0, false, fmt.Errorf("failed to compute average rating: %w", err)
	}

	if result.Count == 0 {
		return 0, false, nil
	}

	return result.AvgRating, true, nil
}
