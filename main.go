package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/reviewloop/review-service/internal/auth"
	"github.com/reviewloop/review-service/internal/config"
	"github.com/reviewloop/review-service/internal/events"
	"github.com/reviewloop/review-service/internal/handlers"
	"github.com/reviewloop/review-service/internal/jira"
	"github.com/reviewloop/review-service/internal/metrics"
	"github.com/reviewloop/review-service/internal/repositories/postgres"
	"github.com/reviewloop/review-service/internal/services"
	"github.com/reviewloop/review-service/internal/utils"
	"github.com/reviewloop/review-service/internal/validator"
	"github.com/reviewloop/review-service/internal/workers"
	"github.com/reviewloop/review-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize Redis (if configured)
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis: %v", err)
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}

	// Initialize validator and token manager
	v := validator.New()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Event publisher: Kafka when brokers are configured, no-op otherwise
	var publisher events.EventPublisher = events.NewNoopEventPublisher(slogLogger)
	if cfg.Kafka.Enabled() {
		kafkaPublisher, err := events.NewKafkaEventPublisher(cfg.Kafka.Brokers, slogLogger)
		if err != nil {
			log.Printf("Warning: Failed to initialize Kafka publisher: %v", err)
		} else {
			publisher = kafkaPublisher
		}
	}

	// Jira client (if configured)
	var jiraClient *jira.Client
	if cfg.Jira.Enabled() {
		jiraClient = jira.NewClient(jira.Config{
			BaseURL:          cfg.Jira.BaseURL,
			Email:            cfg.Jira.Email,
			APIToken:         cfg.Jira.APIToken,
			ProjectKey:       cfg.Jira.ProjectKey,
			StoryPointsField: cfg.Jira.StoryPointsField,
		}, slogLogger)
	}

	// Metrics registry
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// Initialize services
	deps := services.Dependencies{
		DB:         db,
		Repo:       repoManager.GetRepository(),
		Logger:     slogLogger,
		Validator:  v,
		Tokens:     tokens,
		AuthConfig: cfg.Auth,
		Publisher:  publisher,
		JiraClient: jiraClient,
		Recorder:   collector,
	}
	var serviceManager services.ServiceManager
	if cfg.IsProduction() {
		serviceManager = services.CreateProductionServiceManager(deps)
	} else {
		serviceManager = services.CreateDevelopmentServiceManager(deps)
	}
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, tokens, cfg, logger, metrics.Handler(registry))

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Setup middleware
	handlers.SetupMiddleware(router, logger, cfg, collector)

	// Setup routes
	handlerManager.SetupRoutes(router)

	// Background session cleanup keeps the sessions table small and the
	// active session gauge current.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	cleanupWorker := workers.NewSessionCleanupWorker(serviceManager.Auth(), collector, slogLogger, cfg.Auth.SessionCleanupInterval)
	go cleanupWorker.Run(workerCtx)

	// Create HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	stopWorker()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Shutdown services
	if err := serviceManager.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown services: %v", err)
	}

	// Close database connection
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	// Close Redis connection
	if redisClient != nil {
		redisClient.Close()
	}

	logger.Info("Server exited")
}
