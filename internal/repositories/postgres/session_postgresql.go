package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

// SessionPostgreSQL stores sessions without a cache layer. Revocation must
// take effect on the next request, so every lookup hits the database.
type SessionPostgreSQL struct {
	db *gorm.DB
}

func NewSessionPostgreSQL(db *gorm.DB) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db}
}

// Create persists a new session
func (s *SessionPostgreSQL) Create(ctx context.Context, session *models.Session) error {
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by ID
func (s *SessionPostgreSQL) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("session not found with ID %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// ListByUser retrieves all sessions belonging to a user, most recently
// active first
func (s *SessionPostgreSQL) ListByUser(ctx context.Context, userID string) ([]*models.Session, error) {
	var sessions []*models.Session
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_activity_at DESC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Touch records activity on a session. Only last_activity_at moves; the
// absolute expiry set at login stays fixed.
func (s *SessionPostgreSQL) Touch(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Update("last_activity_at", at)
	if result.Error != nil {
		return fmt.Errorf("failed to touch session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session not found with ID %s: %w", id, repositories.ErrNotFound)
	}
	return nil
}

// Delete removes a session, revoking the token bound to it
func (s *SessionPostgreSQL) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session not found with ID %s: %w", id, repositories.ErrNotFound)
	}
	return nil
}

// DeleteByUser removes all sessions of a user and returns how many were
// deleted
func (s *SessionPostgreSQL) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result := s.db.WithContext(ctx).Delete(&models.Session{}, "user_id = ?", userID)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete sessions for user: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteExpired removes sessions past their absolute expiry or idle beyond
// the idle timeout
func (s *SessionPostgreSQL) DeleteExpired(ctx context.Context, now time.Time, idleTimeout time.Duration) (int64, error) {
	idleCutoff := now.Add(-idleTimeout)

	result := s.db.WithContext(ctx).
		Where("expires_at <= ? OR last_activity_at <= ?", now, idleCutoff).
		Delete(&models.Session{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountActive counts sessions that are neither past their absolute expiry
// nor idle-expired
func (s *SessionPostgreSQL) CountActive(ctx context.Context, now time.Time, idleTimeout time.Duration) (int64, error) {
	idleCutoff := now.Add(-idleTimeout)

	var count int64
	if err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("expires_at > ? AND last_activity_at > ?", now, idleCutoff).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return count, nil
}
