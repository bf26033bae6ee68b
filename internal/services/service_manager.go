package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/reviewloop/review-service/internal/auth"
	"github.com/reviewloop/review-service/internal/config"
	"github.com/reviewloop/review-service/internal/events"
	"github.com/reviewloop/review-service/internal/jira"
	"github.com/reviewloop/review-service/internal/metrics"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

// Dependencies bundles everything the services need. Publisher and Recorder
// may be nil; NewServiceManager substitutes no-op implementations.
type Dependencies struct {
	DB         *gorm.DB
	Repo       repositories.Repository
	Logger     *slog.Logger
	Validator  *validator.Validator
	Tokens     *auth.TokenManager
	AuthConfig config.AuthConfig
	Publisher  events.EventPublisher
	JiraClient *jira.Client
	Recorder   metrics.Recorder
}

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	// Logging configuration
	EnableDebugLogging bool
	EnableMetrics      bool
	LogLevel           slog.Level

	// Service-specific configurations
	Auth       ServiceConfig
	User       ServiceConfig
	Feedback   ServiceConfig
	Assessment ServiceConfig
	Attendance ServiceConfig
	Jira       ServiceConfig

	// Global settings
	DefaultTimeout    time.Duration
	MaxRetries        int
	RateLimitingRules map[string]RateLimit
}

type ServiceConfig struct {
	Enabled         bool
	CacheEnabled    bool
	CacheTTL        time.Duration
	ValidationLevel ValidationLevel
	AuditingEnabled bool
	MetricsEnabled  bool
}

type ValidationLevel int

const (
	ValidationBasic ValidationLevel = iota
	ValidationStrict
	ValidationFull
)

type RateLimit struct {
	RequestsPerMinute int
	BurstSize         int
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	deps   Dependencies
	config ServiceManagerConfig

	// Service instances
	authService         AuthService
	userService         UserService
	teamService         TeamService
	businessUnitService BusinessUnitService
	reviewCycleService  ReviewCycleService
	feedbackService     FeedbackService
	assessmentService   AssessmentService
	attendanceService   AttendanceService
	jiraService         JiraService
	dashboardService    DashboardService
	exportService       ExportService
	notificationService NotificationEventService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Publisher == nil {
		deps.Publisher = events.NewNoopEventPublisher(deps.Logger)
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NopRecorder{}
	}

	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps Dependencies) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		EnableMetrics:      true,
		LogLevel:           slog.LevelInfo,

		Auth: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationStrict,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		User: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        5 * time.Minute,
			ValidationLevel: ValidationStrict,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Feedback: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationFull,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Assessment: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationStrict,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Attendance: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        1 * time.Minute,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  true,
		},
		Jira: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        15 * time.Minute,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  true,
		},

		DefaultTimeout:    30 * time.Second,
		MaxRetries:        3,
		RateLimitingRules: make(map[string]RateLimit),
	}

	return NewServiceManager(deps, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.deps.Logger.Info("Initializing service manager")

	// Initialize individual services
	if err := sm.initializeServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	// Validate all services are healthy
	if err := sm.validateServicesHealth(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices(ctx context.Context) error {
	d := sm.deps

	// Initialize AuthService
	if sm.config.Auth.Enabled {
		sm.authService = NewAuthService(d.Repo, d.Logger, d.Validator, d.Tokens, d.AuthConfig, d.Publisher, d.Recorder)
		sm.deps.Logger.Info("Auth service initialized")
	}

	// Initialize UserService
	if sm.config.User.Enabled {
		sm.userService = NewUserService(d.Repo, d.DB, d.Logger, d.Validator, d.Publisher)
		sm.deps.Logger.Info("User service initialized")
	}

	// Initialize TeamService
	sm.teamService = NewTeamService(d.Repo, d.DB, d.Logger, d.Validator)
	sm.deps.Logger.Info("Team service initialized")

	// Initialize BusinessUnitService
	sm.businessUnitService = NewBusinessUnitService(d.Repo, d.DB, d.Logger, d.Validator)
	sm.deps.Logger.Info("BusinessUnit service initialized")

	// Initialize ReviewCycleService
	sm.reviewCycleService = NewReviewCycleService(d.Repo, d.DB, d.Logger, d.Validator, d.Publisher)
	sm.deps.Logger.Info("ReviewCycle service initialized")

	// Initialize FeedbackService
	if sm.config.Feedback.Enabled {
		sm.feedbackService = NewFeedbackService(d.Repo, d.DB, d.Logger, d.Validator, d.Publisher, d.Recorder)
		sm.deps.Logger.Info("Feedback service initialized")
	}

	// Initialize AssessmentService
	if sm.config.Assessment.Enabled {
		sm.assessmentService = NewAssessmentService(d.Repo, d.DB, d.Logger, d.Validator, d.Publisher)
		sm.deps.Logger.Info("Assessment service initialized")
	}

	// Initialize AttendanceService
	if sm.config.Attendance.Enabled {
		sm.attendanceService = NewAttendanceService(d.Repo, d.DB, d.Logger, d.Validator)
		sm.deps.Logger.Info("Attendance service initialized")
	}

	// Initialize JiraService
	if sm.config.Jira.Enabled {
		sm.jiraService = NewJiraService(d.Repo, d.Logger, d.Validator, d.JiraClient)
		sm.deps.Logger.Info("Jira service initialized")
	}

	// Initialize DashboardService
	sm.dashboardService = NewDashboardService(d.Repo, d.DB, d.Logger)
	sm.deps.Logger.Info("Dashboard service initialized")

	// Initialize ExportService
	sm.exportService = NewExportService(d.Repo, d.Logger, d.Validator)
	sm.deps.Logger.Info("Export service initialized")

	// Initialize NotificationEventService
	sm.notificationService = NewNotificationEventService(d.Repo, d.Publisher, d.Logger, d.Validator)
	sm.deps.Logger.Info("Notification event service initialized")

	return nil
}

func (sm *serviceManager) validateServicesHealth(ctx context.Context) error {
	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository ping failed: %w", err)
	}

	return nil
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Auth.Enabled && sm.authService != nil {
		return sm.authService
	}

	panic("auth service not enabled or not initialized")
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.User.Enabled && sm.userService != nil {
		return sm.userService
	}

	panic("user service not enabled or not initialized")
}

func (sm *serviceManager) Team() TeamService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.teamService != nil {
		return sm.teamService
	}

	panic("team service not initialized")
}

func (sm *serviceManager) BusinessUnit() BusinessUnitService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.businessUnitService != nil {
		return sm.businessUnitService
	}

	panic("business unit service not initialized")
}

func (sm *serviceManager) ReviewCycle() ReviewCycleService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.reviewCycleService != nil {
		return sm.reviewCycleService
	}

	panic("review cycle service not initialized")
}

func (sm *serviceManager) Feedback() FeedbackService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Feedback.Enabled && sm.feedbackService != nil {
		return sm.feedbackService
	}

	panic("feedback service not enabled or not initialized")
}

func (sm *serviceManager) Assessment() AssessmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Assessment.Enabled && sm.assessmentService != nil {
		return sm.assessmentService
	}

	panic("assessment service not enabled or not initialized")
}

func (sm *serviceManager) Attendance() AttendanceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Attendance.Enabled && sm.attendanceService != nil {
		return sm.attendanceService
	}

	panic("attendance service not enabled or not initialized")
}

func (sm *serviceManager) Jira() JiraService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.config.Jira.Enabled && sm.jiraService != nil {
		return sm.jiraService
	}

	panic("jira service not enabled or not initialized")
}

func (sm *serviceManager) Dashboard() DashboardService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.dashboardService != nil {
		return sm.dashboardService
	}

	panic("dashboard service not initialized")
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.exportService != nil {
		return sm.exportService
	}

	panic("export service not initialized")
}

func (sm *serviceManager) NotificationEvents() NotificationEventService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	if sm.notificationService != nil {
		return sm.notificationService
	}

	panic("notification event service not initialized")
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	// Check repository health
	if repoManager, ok := sm.deps.Repo.(repositories.RepositoryManager); ok {
		if err := repoManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("repository health check failed: %w", err)
		}
		return nil
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository ping failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	// Shutdown repository manager
	if repoManager, ok := sm.deps.Repo.(repositories.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			sm.deps.Logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}

// ===== UTILITY METHODS =====

// GetConfig returns the service manager configuration
func (sm *serviceManager) GetConfig() ServiceManagerConfig {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.config
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}

// IsShutdown returns whether the service manager has been shut down
func (sm *serviceManager) IsShutdown() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.shutdown
}

// ===== HELPER FUNCTIONS =====

// WithTimeout creates a context with the default timeout
func (sm *serviceManager) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sm.config.DefaultTimeout)
}

// WithDeadline creates a context with a specific deadline
func (sm *serviceManager) WithDeadline(parent context.Context, deadline time.Time) (context.Context, context.CancelFunc) {
	return context.WithDeadline(parent, deadline)
}

// ===== CONFIGURATION VALIDATION =====

// Validate validates the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	// Validate timeouts
	if config.DefaultTimeout <= 0 {
		errors = append(errors, "default timeout must be positive")
	}

	if config.MaxRetries < 0 {
		errors = append(errors, "max retries cannot be negative")
	}

	// Validate service configurations
	if err := config.Auth.validate("auth"); err != nil {
		errors = append(errors, err.Error())
	}

	if err := config.User.validate("user"); err != nil {
		errors = append(errors, err.Error())
	}

	if err := config.Feedback.validate("feedback"); err != nil {
		errors = append(errors, err.Error())
	}

	if err := config.Assessment.validate("assessment"); err != nil {
		errors = append(errors, err.Error())
	}

	if err := config.Attendance.validate("attendance"); err != nil {
		errors = append(errors, err.Error())
	}

	if err := config.Jira.validate("jira"); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func (sc *ServiceConfig) validate(serviceName string) error {
	var errors []string

	if sc.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("%s: cache TTL cannot be negative", serviceName))
	}

	if sc.ValidationLevel < ValidationBasic || sc.ValidationLevel > ValidationFull {
		errors = append(errors, fmt.Sprintf("%s: invalid validation level", serviceName))
	}

	if len(errors) > 0 {
		return fmt.Errorf("%s", errors[0])
	}

	return nil
}

// ===== FACTORY FUNCTIONS =====

// CreateProductionServiceManager creates a service manager configured for production
func CreateProductionServiceManager(deps Dependencies) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		EnableMetrics:      true,
		LogLevel:           slog.LevelInfo,

		Auth: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false, // Sessions must reflect revocations immediately
			CacheTTL:        0,
			ValidationLevel: ValidationStrict,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		User: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        10 * time.Minute,
			ValidationLevel: ValidationFull,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Feedback: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationFull,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Assessment: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationStrict,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Attendance: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationStrict,
			AuditingEnabled: true,
			MetricsEnabled:  true,
		},
		Jira: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    true,
			CacheTTL:        30 * time.Minute,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  true,
		},

		DefaultTimeout: 60 * time.Second,
		MaxRetries:     3,
		RateLimitingRules: map[string]RateLimit{
			"login":           {RequestsPerMinute: 10, BurstSize: 5},
			"feedback_submit": {RequestsPerMinute: 60, BurstSize: 10},
			"jira_sync":       {RequestsPerMinute: 4, BurstSize: 1},
		},
	}

	return NewServiceManager(deps, config)
}

// CreateDevelopmentServiceManager creates a service manager configured for development
func CreateDevelopmentServiceManager(deps Dependencies) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: true,
		EnableMetrics:      false,
		LogLevel:           slog.LevelDebug,

		Auth: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},
		User: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},
		Feedback: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},
		Assessment: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},
		Attendance: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},
		Jira: ServiceConfig{
			Enabled:         true,
			CacheEnabled:    false,
			CacheTTL:        0,
			ValidationLevel: ValidationBasic,
			AuditingEnabled: false,
			MetricsEnabled:  false,
		},

		DefaultTimeout:    10 * time.Second,
		MaxRetries:        1,
		RateLimitingRules: make(map[string]RateLimit),
	}

	return NewServiceManager(deps, config)
}
