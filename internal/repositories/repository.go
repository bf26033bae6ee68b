package repositories

import "context"

// Repository aggregates all repository interfaces
type Repository interface {
	// User and session domain
	User() UserRepository
	Session() SessionRepository

	// Organization domain
	Team() TeamRepository
	BusinessUnit() BusinessUnitRepository

	// Review domain
	ReviewCycle() ReviewCycleRepository
	FeedbackRequest() FeedbackRequestRepository
	Feedback() FeedbackRepository
	SelfAssessment() SelfAssessmentRepository

	// Attendance domain
	Attendance() AttendanceRepository

	// Jira statistics cache
	JiraStat() JiraStatRepository

	// Dashboard domain
	Dashboard() DashboardRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
