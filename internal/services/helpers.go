package services

import (
	"context"
	"fmt"
	"time"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
)

// resolveUserRole loads just the role of a user. Services call this before
// entity-level permission checks.
func resolveUserRole(ctx context.Context, repo repositories.Repository, userID string) (models.UserRole, error) {
	user, err := repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to get user role: %w", err)
	}

	return user.Role, nil
}

// periodWindow converts a "2006-01" period into its first and last calendar
// day, both at midnight UTC.
func periodWindow(period string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Time{}, time.Time{}, NewValidationError("period", "period must be formatted YYYY-MM", period)
	}

	start = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, -1)

	return start, end, nil
}
