package postgres

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// ApplyUserFilters applies common filters to user queries
func (h *SharedHelpers) ApplyUserFilters(query *gorm.DB, filters repositories.UserFilters) *gorm.DB {
	if filters.Query != "" {
		term := "%" + strings.ToLower(filters.Query) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ?", term, term)
	}
	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}
	if filters.TeamID != nil {
		query = query.Where("team_id = ?", *filters.TeamID)
	}
	if filters.ManagerID != nil {
		query = query.Where("manager_id = ?", *filters.ManagerID)
	}
	if filters.Active != nil {
		query = query.Where("active = ?", *filters.Active)
	}
	return query
}

// ApplyCycleFilters applies common filters to review cycle queries
func (h *SharedHelpers) ApplyCycleFilters(query *gorm.DB, filters repositories.CycleFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return query
}

// ApplyFeedbackRequestFilters applies common filters to feedback request queries
func (h *SharedHelpers) ApplyFeedbackRequestFilters(query *gorm.DB, filters repositories.FeedbackRequestFilters) *gorm.DB {
	if filters.CycleID != nil {
		query = query.Where("cycle_id = ?", *filters.CycleID)
	}
	if filters.ReviewerID != nil {
		query = query.Where("reviewer_id = ?", *filters.ReviewerID)
	}
	if filters.RevieweeID != nil {
		query = query.Where("reviewee_id = ?", *filters.RevieweeID)
	}
	if filters.Kind != nil {
		query = query.Where("kind = ?", *filters.Kind)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	return query
}

// ApplyFeedbackFilters applies common filters to submitted feedback queries
func (h *SharedHelpers) ApplyFeedbackFilters(query *gorm.DB, filters repositories.FeedbackFilters) *gorm.DB {
	if filters.CycleID != nil {
		query = query.Where("cycle_id = ?", *filters.CycleID)
	}
	if filters.ReviewerID != nil {
		query = query.Where("reviewer_id = ?", *filters.ReviewerID)
	}
	if filters.RevieweeID != nil {
		query = query.Where("reviewee_id = ?", *filters.RevieweeID)
	}
	if filters.Kind != nil {
		query = query.Where("kind = ?", *filters.Kind)
	}
	return query
}

// ApplyAttendanceFilters applies common filters to attendance queries
func (h *SharedHelpers) ApplyAttendanceFilters(query *gorm.DB, filters repositories.AttendanceFilters) *gorm.DB {
	if filters.UserID != nil {
		query = query.Where("attendance_records.user_id = ?", *filters.UserID)
	}
	if filters.TeamID != nil {
		query = query.
			Joins("JOIN users ON users.id = attendance_records.user_id").
			Where("users.team_id = ?", *filters.TeamID)
	}
	if filters.Status != nil {
		query = query.Where("attendance_records.status = ?", *filters.Status)
	}
	if filters.DateFrom != nil {
		query = query.Where("attendance_records.date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("attendance_records.date <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":       true,
		"updated_at":       true,
		"id":               true,
		"name":             true,
		"full_name":        true,
		"email":            true,
		"status":           true,
		"start_date":       true,
		"end_date":         true,
		"date":             true,
		"due_date":         true,
		"rating":           true,
		"submitted_at":     true,
		"last_activity_at": true,
		"period":           true,
	}

	// Validate and set sort column
	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	// Validate and set sort order
	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}

// CountRequestsByStatus counts feedback requests in a cycle by status
func (h *SharedHelpers) CountRequestsByStatus(ctx context.Context, cycleID uint, status models.FeedbackRequestStatus) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.FeedbackRequest{}).
		Where("cycle_id = ? AND status = ?", cycleID, status).
		Count(&count).Error
	return count, err
}

// CountRequests counts all feedback requests in a cycle
func (h *SharedHelpers) CountRequests(ctx context.Context, cycleID uint) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.FeedbackRequest{}).
		Where("cycle_id = ?", cycleID).
		Count(&count).Error
	return count, err
}

// CountAssessmentsByStatus counts self-assessments in a cycle by status
func (h *SharedHelpers) CountAssessmentsByStatus(ctx context.Context, cycleID uint, status models.SelfAssessmentStatus) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.SelfAssessment{}).
		Where("cycle_id = ? AND status = ?", cycleID, status).
		Count(&count).Error
	return count, err
}
