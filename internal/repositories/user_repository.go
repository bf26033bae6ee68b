package repositories

import (
	"context"

	"github.com/reviewloop/review-service/internal/models"
)

// UserFilters defines filters for user queries
type UserFilters struct {
	Query     string           // Search query for name or email
	Role      *models.UserRole // Filter by role
	TeamID    *uint            // Filter by team
	ManagerID *string          // Filter by direct manager
	Active    *bool            // Filter by active flag
	Limit     int              // Page size
	Offset    int              // Offset for pagination
	SortBy    string           // "created_at", "full_name", "email"
	SortOrder string           // "asc", "desc"
}

// UserRepository interface for user operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error

	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)

	// List and search operations
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)
	Search(ctx context.Context, query string, filters UserFilters) ([]*models.User, int64, error)
	GetDirectReports(ctx context.Context, managerID string) ([]*models.User, error)
	GetByTeam(ctx context.Context, teamID uint) ([]*models.User, error)

	// Validation and checks
	ExistsByID(ctx context.Context, id string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	HasRole(ctx context.Context, id string, role models.UserRole) (bool, error)

	CountByRole(ctx context.Context, role models.UserRole) (int64, error)
}
