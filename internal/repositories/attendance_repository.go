package repositories

import (
	"context"
	"time"

	"github.com/reviewloop/review-service/internal/models"
)

// AttendanceFilters defines filters for attendance queries
type AttendanceFilters struct {
	UserID   *string                  `json:"user_id"`
	TeamID   *uint                    `json:"team_id"`
	Status   *models.AttendanceStatus `json:"status"`
	DateFrom *time.Time               `json:"date_from"`
	DateTo   *time.Time               `json:"date_to"`
	Limit    int                      `json:"limit"`
	Offset   int                      `json:"offset"`
}

// AttendanceSummary aggregates day counts per status for one user.
type AttendanceSummary struct {
	UserID   string                          `json:"user_id"`
	Days     map[models.AttendanceStatus]int `json:"days"`
	Total    int                             `json:"total"`
	DateFrom time.Time                       `json:"date_from"`
	DateTo   time.Time                       `json:"date_to"`
}

// AttendanceRepository interface for attendance operations
type AttendanceRepository interface {
	// Upsert inserts or replaces the record for the user and date.
	Upsert(ctx context.Context, record *models.AttendanceRecord) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.AttendanceRecord, error)
	GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.AttendanceRecord, error)
	List(ctx context.Context, filters AttendanceFilters) ([]*models.AttendanceRecord, int64, error)

	Summarize(ctx context.Context, userID string, from, to time.Time) (*AttendanceSummary, error)
}
