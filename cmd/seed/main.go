package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/reviewloop/review-service/internal/config"
	"github.com/reviewloop/review-service/internal/seed"
	"github.com/reviewloop/review-service/pkg"
)

// Seeds a development database with demo org data and prints the login
// credentials. Safe to run more than once.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	creds, err := seed.Run(db, logger)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	fmt.Println("Demo accounts:")
	for _, c := range creds {
		fmt.Printf("  %-10s %s / %s\n", c.Role, c.Email, c.Password)
	}
}
