package repositories

import (
	"context"
	"time"

	"github.com/reviewloop/review-service/internal/models"
)

// SessionRepository interface for session tracking operations
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Session, error)

	// Touch updates last activity. The absolute expiry is never moved.
	Touch(ctx context.Context, id string, at time.Time) error

	Delete(ctx context.Context, id string) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired removes sessions past their absolute expiry or idle for
	// longer than idleTimeout, returning the number of rows removed.
	DeleteExpired(ctx context.Context, now time.Time, idleTimeout time.Duration) (int64, error)

	CountActive(ctx context.Context, now time.Time, idleTimeout time.Duration) (int64, error)
}
