package seed

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/auth"
	"github.com/reviewloop/review-service/internal/models"
)

// Credential pairs an email with the plaintext password the account was
// seeded with, so the seeder can print working logins.
type Credential struct {
	Email    string
	Password string
	Role     models.UserRole
}

// Run inserts a small demo data set: two business units, three teams, a
// handful of users with known passwords and an open review cycle. Rows are
// matched by natural key and never overwritten, so running it repeatedly
// is safe.
func Run(db *gorm.DB, logger *slog.Logger) ([]Credential, error) {
	engineering, err := ensureBusinessUnit(db, "Engineering", "Product engineering and platform teams")
	if err != nil {
		return nil, err
	}
	product, err := ensureBusinessUnit(db, "Product", "Product management and design")
	if err != nil {
		return nil, err
	}

	platform, err := ensureTeam(db, "Platform", engineering.ID, "Backend services and infrastructure")
	if err != nil {
		return nil, err
	}
	mobile, err := ensureTeam(db, "Mobile", engineering.ID, "iOS and Android apps")
	if err != nil {
		return nil, err
	}
	if _, err := ensureTeam(db, "Design", product.ID, "Product design"); err != nil {
		return nil, err
	}

	admin, err := ensureUser(db, userSpec{
		email:    "admin@reviewloop.dev",
		fullName: "Alex Admin",
		password: "admin123!",
		role:     models.RoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	mara, err := ensureUser(db, userSpec{
		email:    "mara.chen@reviewloop.dev",
		fullName: "Mara Chen",
		password: "manager123!",
		role:     models.RoleManager,
		teamID:   &platform.ID,
		position: strPtr("Engineering Manager"),
	})
	if err != nil {
		return nil, err
	}

	employees := []userSpec{
		{
			email:        "jonas.meyer@reviewloop.dev",
			fullName:     "Jonas Meyer",
			password:     "employee123!",
			role:         models.RoleEmployee,
			teamID:       &platform.ID,
			managerID:    &mara.ID,
			position:     strPtr("Backend Engineer"),
			jiraUsername: strPtr("jmeyer"),
		},
		{
			email:        "priya.nair@reviewloop.dev",
			fullName:     "Priya Nair",
			password:     "employee123!",
			role:         models.RoleEmployee,
			teamID:       &platform.ID,
			managerID:    &mara.ID,
			position:     strPtr("Backend Engineer"),
			jiraUsername: strPtr("pnair"),
		},
		{
			email:     "tomas.silva@reviewloop.dev",
			fullName:  "Tomas Silva",
			password:  "employee123!",
			role:      models.RoleEmployee,
			teamID:    &mobile.ID,
			managerID: &mara.ID,
			position:  strPtr("Mobile Engineer"),
		},
	}
	for _, spec := range employees {
		if _, err := ensureUser(db, spec); err != nil {
			return nil, err
		}
	}

	if platform.LeadID == nil {
		if err := db.Model(platform).Update("lead_id", mara.ID).Error; err != nil {
			return nil, fmt.Errorf("set team lead: %w", err)
		}
	}

	if err := ensureOpenCycle(db, admin.ID); err != nil {
		return nil, err
	}

	logger.Info("Seed data ensured",
		"business_units", 2,
		"teams", 3,
		"users", 5)

	creds := []Credential{
		{Email: admin.Email, Password: "admin123!", Role: models.RoleAdmin},
		{Email: mara.Email, Password: "manager123!", Role: models.RoleManager},
		{Email: "jonas.meyer@reviewloop.dev", Password: "employee123!", Role: models.RoleEmployee},
	}
	return creds, nil
}

type userSpec struct {
	email        string
	fullName     string
	password     string
	role         models.UserRole
	teamID       *uint
	managerID    *string
	position     *string
	jiraUsername *string
}

func ensureBusinessUnit(db *gorm.DB, name, description string) (*models.BusinessUnit, error) {
	var bu models.BusinessUnit
	err := db.Where(models.BusinessUnit{Name: name}).
		Attrs(models.BusinessUnit{Description: &description}).
		FirstOrCreate(&bu).Error
	if err != nil {
		return nil, fmt.Errorf("ensure business unit %q: %w", name, err)
	}
	return &bu, nil
}

func ensureTeam(db *gorm.DB, name string, businessUnitID uint, description string) (*models.Team, error) {
	var team models.Team
	err := db.Where(models.Team{Name: name, BusinessUnitID: businessUnitID}).
		Attrs(models.Team{Description: &description}).
		FirstOrCreate(&team).Error
	if err != nil {
		return nil, fmt.Errorf("ensure team %q: %w", name, err)
	}
	return &team, nil
}

func ensureUser(db *gorm.DB, spec userSpec) (*models.User, error) {
	hash, err := auth.HashPassword(spec.password)
	if err != nil {
		return nil, fmt.Errorf("hash password for %s: %w", spec.email, err)
	}

	var user models.User
	err = db.Where(models.User{Email: spec.email}).
		Attrs(models.User{
			ID:           uuid.New().String(),
			FullName:     spec.fullName,
			PasswordHash: hash,
			Role:         spec.role,
			TeamID:       spec.teamID,
			ManagerID:    spec.managerID,
			Position:     spec.position,
			JiraUsername: spec.jiraUsername,
			Active:       true,
		}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("ensure user %s: %w", spec.email, err)
	}
	return &user, nil
}

// ensureOpenCycle creates an open half-year cycle unless one is already
// open; two open cycles at once are never allowed.
func ensureOpenCycle(db *gorm.DB, createdBy string) error {
	var openCount int64
	if err := db.Model(&models.ReviewCycle{}).
		Where("status = ?", models.CycleOpen).
		Count(&openCount).Error; err != nil {
		return fmt.Errorf("count open cycles: %w", err)
	}
	if openCount > 0 {
		return nil
	}

	now := time.Now().UTC()
	start := time.Date(now.Year(), ((now.Month()-1)/6)*6+1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 6, 0).Add(-time.Second)
	name := fmt.Sprintf("%d H%d Review", start.Year(), (int(start.Month())-1)/6+1)
	description := "Seeded demo review cycle"

	cycle := models.ReviewCycle{
		Name:        name,
		Description: &description,
		StartDate:   start,
		EndDate:     end,
		Status:      models.CycleOpen,
		OpenedAt:    &now,
		CreatedBy:   createdBy,
	}
	if err := db.Create(&cycle).Error; err != nil {
		return fmt.Errorf("create review cycle: %w", err)
	}
	return nil
}

func strPtr(s string) *string { return &s }
