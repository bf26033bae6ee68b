package pkg

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/reviewloop/review-service/internal/config"
	"github.com/reviewloop/review-service/internal/models"
)

// InitDatabase opens the Postgres connection, tunes the pool and brings the
// schema up to date.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	logMode := gormlogger.Warn
	if cfg.IsProduction() {
		logMode = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}

// migrate lists referenced tables before their dependents; gorm resolves the
// users/teams cycle by adding constraints after both tables exist.
func migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.BusinessUnit{},
		&models.Team{},
		&models.User{},
		&models.Session{},
		&models.ReviewCycle{},
		&models.FeedbackRequest{},
		&models.Feedback{},
		&models.SelfAssessment{},
		&models.AttendanceRecord{},
		&models.JiraUserStat{},
	)
}
