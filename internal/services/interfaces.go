package services

import (
	"context"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/reviewloop/review-service/internal/models"
	"github.com/reviewloop/review-service/internal/repositories"
	"github.com/reviewloop/review-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type LoginRequest = validator.LoginRequest
type ChangePasswordRequest = validator.ChangePasswordRequest

type CreateUserRequest = validator.UserCreateRequest
type UpdateUserRequest = validator.UserUpdateRequest
type ChangeRoleRequest = validator.RoleChangeRequest
type AssignManagerRequest = validator.ManagerAssignRequest

type CreateTeamRequest = validator.TeamCreateRequest
type UpdateTeamRequest = validator.TeamUpdateRequest
type CreateBusinessUnitRequest = validator.BusinessUnitCreateRequest
type UpdateBusinessUnitRequest = validator.BusinessUnitUpdateRequest

type CreateCycleRequest = validator.CycleCreateRequest
type UpdateCycleRequest = validator.CycleUpdateRequest

type CreateFeedbackRequest = validator.FeedbackRequestCreate
type SubmitFeedbackRequest = validator.FeedbackSubmitRequest
type DeclineFeedbackRequest = validator.FeedbackDeclineRequest

type SaveAssessmentRequest = validator.AssessmentSaveRequest
type UpsertAttendanceRequest = validator.AttendanceUpsertRequest
type SyncJiraRequest = validator.JiraSyncRequest

// ===== AUTH RELATED DTOs =====

type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type SessionResponse struct {
	*models.Session
	Current bool `json:"current"`

	// IdleExpiresAt is when the session dies without further activity,
	// capped at the absolute ceiling.
	IdleExpiresAt time.Time `json:"idle_expires_at"`
}

type SessionListResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
	Total    int                `json:"total"`
}

// ===== USER RELATED DTOs =====

type UserResponse struct {
	*models.User
	CanEdit   bool `json:"can_edit"`
	CanManage bool `json:"can_manage"`
}

type UserListResponse struct {
	Users []*UserResponse `json:"users"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

// ===== ORGANIZATION RELATED DTOs =====

type TeamResponse struct {
	*models.Team
	Members []*models.User `json:"members,omitempty"`
}

type TeamListResponse struct {
	Teams []*TeamResponse `json:"teams"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

type BusinessUnitResponse struct {
	*models.BusinessUnit
	TeamCount int64 `json:"team_count"`
}

type BusinessUnitListResponse struct {
	Units []*BusinessUnitResponse `json:"units"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Size  int                     `json:"size"`
}

// ===== REVIEW CYCLE RELATED DTOs =====

type CycleResponse struct {
	*models.ReviewCycle
	CanEdit bool `json:"can_edit"`
}

type CycleListResponse struct {
	Cycles []*CycleResponse `json:"cycles"`
	Total  int64            `json:"total"`
	Page   int              `json:"page"`
	Size   int              `json:"size"`
}

// ===== FEEDBACK RELATED DTOs =====

type FeedbackRequestResponse struct {
	*models.FeedbackRequest
	CanSubmit  bool `json:"can_submit"`
	CanDecline bool `json:"can_decline"`
}

type FeedbackRequestListResponse struct {
	Requests []*FeedbackRequestResponse `json:"requests"`
	Total    int64                      `json:"total"`
	Page     int                        `json:"page"`
	Size     int                        `json:"size"`
}

type FeedbackListResponse struct {
	Feedback []*models.Feedback `json:"feedback"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	Size     int                `json:"size"`
}

// ===== SELF-ASSESSMENT RELATED DTOs =====

type AssessmentResponse struct {
	*models.SelfAssessment
	CanEdit   bool `json:"can_edit"`
	CanSubmit bool `json:"can_submit"`
}

type AssessmentListResponse struct {
	Assessments []*AssessmentResponse `json:"assessments"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Size        int                   `json:"size"`
}

// ===== ATTENDANCE RELATED DTOs =====

type AttendanceListResponse struct {
	Records []*models.AttendanceRecord `json:"records"`
	Total   int64                      `json:"total"`
	Page    int                        `json:"page"`
	Size    int                        `json:"size"`
}

// ===== JIRA RELATED DTOs =====

type JiraSyncResult struct {
	Period  string   `json:"period"`
	Synced  int      `json:"synced"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// ===== DASHBOARD RELATED DTOs =====

type DashboardSummaryResponse struct {
	OpenCycle        *models.ReviewCycle             `json:"open_cycle,omitempty"`
	PendingRequests  int64                           `json:"pending_requests"`
	FeedbackGiven    int64                           `json:"feedback_given"`
	FeedbackReceived int64                           `json:"feedback_received"`
	AverageRating    *float64                        `json:"average_rating,omitempty"`
	AssessmentStatus *models.SelfAssessmentStatus    `json:"assessment_status,omitempty"`
	Attendance       *repositories.AttendanceSummary `json:"attendance,omitempty"`
	JiraStats        *models.JiraUserStat            `json:"jira_stats,omitempty"`
}

type MemberProgress struct {
	User      *models.User                   `json:"user"`
	Summary   *repositories.UserCycleSummary `json:"summary,omitempty"`
	JiraStats *models.JiraUserStat           `json:"jira_stats,omitempty"`
}

type TeamDashboardResponse struct {
	OpenCycle *models.ReviewCycle `json:"open_cycle,omitempty"`
	Members   []*MemberProgress   `json:"members"`
}

type AdminDashboardResponse struct {
	TotalUsers  int64               `json:"total_users"`
	TotalTeams  int64               `json:"total_teams"`
	ActiveUsers int64               `json:"active_users"`
	OpenCycle   *models.ReviewCycle `json:"open_cycle,omitempty"`

	// Filled only while a cycle is open.
	CompletionRate float64                       `json:"completion_rate"`
	SubmissionRate float64                       `json:"submission_rate"`
	TeamRatings    []repositories.TeamRatingData `json:"team_ratings,omitempty"`

	RecentActivities []repositories.RecentActivityData `json:"recent_activities"`
}

// ===== SERVICE INTERFACES =====

type AuthService interface {
	// Credential flow
	Login(ctx context.Context, req *LoginRequest, userAgent, clientIP string) (*LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
	ChangePassword(ctx context.Context, userID string, req *ChangePasswordRequest) error

	// ValidateSession is the middleware entry point: it loads the session,
	// enforces both expiry rules (revoking on expiry), touches activity and
	// loads the user fail-closed.
	ValidateSession(ctx context.Context, sessionID string) (*models.User, *models.Session, error)

	// Session management
	ListSessions(ctx context.Context, userID, currentSessionID string) (*SessionListResponse, error)
	RevokeSession(ctx context.Context, sessionID, userID string) error

	// Background maintenance
	CleanupExpired(ctx context.Context) (int64, error)
	CountActiveSessions(ctx context.Context) (int64, error)
}

type UserService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateUserRequest, creatorID string) (*UserResponse, error)
	GetByID(ctx context.Context, id string, requesterID string) (*UserResponse, error)
	Update(ctx context.Context, id string, req *UpdateUserRequest, requesterID string) (*UserResponse, error)
	Deactivate(ctx context.Context, id string, requesterID string) error

	// List and search operations
	List(ctx context.Context, filters repositories.UserFilters, requesterID string) (*UserListResponse, error)
	GetDirectReports(ctx context.Context, managerID string, requesterID string) ([]*UserResponse, error)

	// Role and reporting tree management
	ChangeRole(ctx context.Context, id string, req *ChangeRoleRequest, requesterID string) (*UserResponse, error)
	AssignManager(ctx context.Context, id string, req *AssignManagerRequest, requesterID string) (*UserResponse, error)

	// Permission checks
	CanEdit(ctx context.Context, targetID, requesterID string) (bool, error)
}

type TeamService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateTeamRequest, creatorID string) (*TeamResponse, error)
	GetByID(ctx context.Context, id uint, withMembers bool) (*TeamResponse, error)
	Update(ctx context.Context, id uint, req *UpdateTeamRequest, requesterID string) (*TeamResponse, error)
	Delete(ctx context.Context, id uint, requesterID string) error
	List(ctx context.Context, filters repositories.TeamFilters) (*TeamListResponse, error)

	// Membership management
	AssignMember(ctx context.Context, teamID uint, userID string, requesterID string) error
	RemoveMember(ctx context.Context, teamID uint, userID string, requesterID string) error
}

type BusinessUnitService interface {
	Create(ctx context.Context, req *CreateBusinessUnitRequest, creatorID string) (*BusinessUnitResponse, error)
	GetByID(ctx context.Context, id uint, withTeams bool) (*BusinessUnitResponse, error)
	Update(ctx context.Context, id uint, req *UpdateBusinessUnitRequest, requesterID string) (*BusinessUnitResponse, error)
	Delete(ctx context.Context, id uint, requesterID string) error
	List(ctx context.Context, limit, offset int) (*BusinessUnitListResponse, error)
}

type ReviewCycleService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateCycleRequest, creatorID string) (*CycleResponse, error)
	GetByID(ctx context.Context, id uint) (*CycleResponse, error)
	Update(ctx context.Context, id uint, req *UpdateCycleRequest, requesterID string) (*CycleResponse, error)
	Delete(ctx context.Context, id uint, requesterID string) error
	List(ctx context.Context, filters repositories.CycleFilters) (*CycleListResponse, error)
	GetOpen(ctx context.Context) (*CycleResponse, error)

	// Status transitions
	Open(ctx context.Context, id uint, requesterID string) (*CycleResponse, error)
	Close(ctx context.Context, id uint, requesterID string) (*CycleResponse, error)

	// Statistics
	GetStats(ctx context.Context, id uint) (*repositories.CycleStats, error)
}

type FeedbackService interface {
	// Request lifecycle
	CreateRequest(ctx context.Context, req *CreateFeedbackRequest, requesterID string) (*FeedbackRequestResponse, error)
	GetRequest(ctx context.Context, id uint, userID string) (*FeedbackRequestResponse, error)
	ListRequests(ctx context.Context, filters repositories.FeedbackRequestFilters, userID string) (*FeedbackRequestListResponse, error)
	DeclineRequest(ctx context.Context, id uint, req *DeclineFeedbackRequest, reviewerID string) (*FeedbackRequestResponse, error)

	// Submission and reading
	Submit(ctx context.Context, requestID uint, req *SubmitFeedbackRequest, reviewerID string) (*models.Feedback, error)
	GetFeedback(ctx context.Context, id uint, userID string) (*models.Feedback, error)
	ListFeedback(ctx context.Context, filters repositories.FeedbackFilters, userID string) (*FeedbackListResponse, error)
	ListReceived(ctx context.Context, revieweeID string, cycleID uint, userID string) ([]*models.Feedback, error)
}

type AssessmentService interface {
	// Draft lifecycle
	SaveDraft(ctx context.Context, req *SaveAssessmentRequest, userID string) (*AssessmentResponse, error)
	Submit(ctx context.Context, cycleID uint, userID string) (*AssessmentResponse, error)

	// Reading
	GetOwn(ctx context.Context, cycleID uint, userID string) (*AssessmentResponse, error)
	GetForUser(ctx context.Context, targetUserID string, cycleID uint, requesterID string) (*AssessmentResponse, error)
	ListByCycle(ctx context.Context, cycleID uint, limit, offset int, requesterID string) (*AssessmentListResponse, error)
}

type AttendanceService interface {
	Upsert(ctx context.Context, req *UpsertAttendanceRequest, userID string) (*models.AttendanceRecord, error)
	Delete(ctx context.Context, id uint, requesterID string) error
	List(ctx context.Context, filters repositories.AttendanceFilters, requesterID string) (*AttendanceListResponse, error)

	// GetSummary aggregates one user's month ("2006-01") by status.
	GetSummary(ctx context.Context, userID, period string, requesterID string) (*repositories.AttendanceSummary, error)
}

type JiraService interface {
	Sync(ctx context.Context, req *SyncJiraRequest, requesterID string) (*JiraSyncResult, error)
	GetStats(ctx context.Context, userID, period string, requesterID string) (*models.JiraUserStat, error)
	GetHistory(ctx context.Context, userID string, limit int, requesterID string) ([]*models.JiraUserStat, error)
}

type DashboardService interface {
	GetSummary(ctx context.Context, userID string) (*DashboardSummaryResponse, error)
	GetTeamOverview(ctx context.Context, managerID string) (*TeamDashboardResponse, error)
	GetAdminOverview(ctx context.Context) (*AdminDashboardResponse, error)
}

type ExportService interface {
	// ExportAttendanceMonth renders one month of attendance as a spreadsheet,
	// optionally restricted to a team. Returns the file and a filename.
	ExportAttendanceMonth(ctx context.Context, period string, teamID *uint, requesterID string) (*excelize.File, string, error)

	// ExportCycleSummary renders a per-user progress sheet for a cycle.
	ExportCycleSummary(ctx context.Context, cycleID uint, requesterID string) (*excelize.File, string, error)
}

type NotificationEventService interface {
	// SendFeedbackReminders publishes one reminder event per reviewer with
	// pending requests in the cycle, returning the number of reviewers
	// notified.
	SendFeedbackReminders(ctx context.Context, cycleID uint, requesterID string) (int, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	// Core service getters
	Auth() AuthService
	User() UserService
	Team() TeamService
	BusinessUnit() BusinessUnitService
	ReviewCycle() ReviewCycleService
	Feedback() FeedbackService
	Assessment() AssessmentService
	Attendance() AttendanceService
	Jira() JiraService
	Dashboard() DashboardService

	// Additional service getters
	Export() ExportService
	NotificationEvents() NotificationEventService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
