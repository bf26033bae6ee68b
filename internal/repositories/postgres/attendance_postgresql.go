package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

type AttendancePostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttendancePostgreSQL(db *gorm.DB) repositories.AttendanceRepository {
	return &AttendancePostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

// normalizeDate truncates a timestamp to midnight UTC. Attendance is tracked
// per calendar day.
func normalizeDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Upsert inserts or replaces the record for the user and date
func (a *AttendancePostgreSQL) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	record.Date = normalizeDate(record.Date)

	if err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "check_in", "check_out", "note", "updated_at"}),
		}).
		Create(record).Error; err != nil {
		return fmt.Errorf("failed to upsert attendance record: %w", err)
	}

	return nil
}

// Delete removes an attendance record
func (a *AttendancePostgreSQL) Delete(ctx context.Context, id uint) error {
	result := a.db.WithContext(ctx).Delete(&models.AttendanceRecord{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete attendance record: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("attendance record not found with ID %d: %w", id, repositories.ErrNotFound)
	}

	return nil
}

// GetByID retrieves an attendance record by ID
func (a *AttendancePostgreSQL) GetByID(ctx context.Context, id uint) (*models.AttendanceRecord, error) {
	var record models.AttendanceRecord
	if err := a.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attendance record not found with ID %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return &record, nil
}

// GetByUserAndDate retrieves the record for a user on a calendar day
func (a *AttendancePostgreSQL) GetByUserAndDate(ctx context.Context, userID string, date time.Time) (*models.AttendanceRecord, error) {
	day := normalizeDate(date)

	var record models.AttendanceRecord
	if err := a.db.WithContext(ctx).
		First(&record, "user_id = ? AND date = ?", userID, day).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attendance record not found for user %s on %s: %w",
				userID, day.Format("2006-01-02"), repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}

	return &record, nil
}

// List retrieves attendance records with filtering and pagination
func (a *AttendancePostgreSQL) List(ctx context.Context, filters repositories.AttendanceFilters) ([]*models.AttendanceRecord, int64, error) {
	query := a.db.WithContext(ctx).Model(&models.AttendanceRecord{})

	query = a.helpers.ApplyAttendanceFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	query = query.Order("attendance_records.date DESC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var records []*models.AttendanceRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list attendance records: %w", err)
	}

	return records, total, nil
}

// Summarize aggregates per-status day counts for a user in a date range
func (a *AttendancePostgreSQL) Summarize(ctx context.Context, userID string, from, to time.Time) (*repositories.AttendanceSummary, error) {
	from = normalizeDate(from)
	to = normalizeDate(to)

	var rows []struct {
		Status models.AttendanceStatus
		Count  int
	}

	if err := a.db.WithContext(ctx).
		Model(&models.AttendanceRecord{}).
		Select("status, COUNT(*) as count").
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to summarize attendance: %w", err)
	}

	summary := &repositories.AttendanceSummary{
		UserID:   userID,
		Days:     make(map[models.AttendanceStatus]int),
		DateFrom: from,
		DateTo:   to,
	}
	for _, row := range rows {
		summary.Days[row.Status] = row.Count
		summary.Total += row.Count
	}

	return summary, nil
}
