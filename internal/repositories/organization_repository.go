package repositories

import (
	"context"

	"github.com/reviewloop/review-service/internal/models"
)

// TeamFilters defines filters for team queries
type TeamFilters struct {
	BusinessUnitID *uint
	Query          string
	Limit          int
	Offset         int
	SortBy         string
	SortOrder      string
}

// TeamRepository interface for team operations
type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	Update(ctx context.Context, team *models.Team) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.Team, error)
	GetByIDWithMembers(ctx context.Context, id uint) (*models.Team, []*models.User, error)
	List(ctx context.Context, filters TeamFilters) ([]*models.Team, int64, error)

	ExistsByName(ctx context.Context, businessUnitID uint, name string) (bool, error)
	MemberCount(ctx context.Context, id uint) (int64, error)
}

// BusinessUnitRepository interface for business unit operations
type BusinessUnitRepository interface {
	Create(ctx context.Context, unit *models.BusinessUnit) error
	Update(ctx context.Context, unit *models.BusinessUnit) error
	Delete(ctx context.Context, id uint) error

	GetByID(ctx context.Context, id uint) (*models.BusinessUnit, error)
	GetByIDWithTeams(ctx context.Context, id uint) (*models.BusinessUnit, error)
	List(ctx context.Context, limit, offset int) ([]*models.BusinessUnit, int64, error)

	ExistsByName(ctx context.Context, name string) (bool, error)
	TeamCount(ctx context.Context, id uint) (int64, error)
}
