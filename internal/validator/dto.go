package validator

import (
	"encoding/json"
	"time"

	"github.com/reviewloop/review-service/internal/models"
)

// LoginRequest carries credentials for session creation.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// ChangePasswordRequest updates the caller's own password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// UserCreateRequest represents the request structure for creating users
type UserCreateRequest struct {
	FullName     string          `json:"full_name" validate:"required,min=1,max=200"`
	Email        string          `json:"email" validate:"required,email"`
	Password     string          `json:"password" validate:"required,min=8,max=128"`
	Role         models.UserRole `json:"role" validate:"required,user_role"`
	ManagerID    *string         `json:"manager_id" validate:"omitempty,uuid"`
	TeamID       *uint           `json:"team_id"`
	Position     *string         `json:"position" validate:"omitempty,max=200"`
	JiraUsername *string         `json:"jira_username" validate:"omitempty,max=200"`
}

// UserUpdateRequest represents the request structure for updating users
type UserUpdateRequest struct {
	FullName     *string `json:"full_name" validate:"omitempty,min=1,max=200"`
	Email        *string `json:"email" validate:"omitempty,email"`
	TeamID       *uint   `json:"team_id"`
	Position     *string `json:"position" validate:"omitempty,max=200"`
	AvatarURL    *string `json:"avatar_url" validate:"omitempty,url,max=500"`
	JiraUsername *string `json:"jira_username" validate:"omitempty,max=200"`
}

// RoleChangeRequest changes a user's role.
type RoleChangeRequest struct {
	Role models.UserRole `json:"role" validate:"required,user_role"`
}

// ManagerAssignRequest re-parents a user in the reporting tree. A nil
// ManagerID detaches the user from their current manager.
type ManagerAssignRequest struct {
	ManagerID *string `json:"manager_id" validate:"omitempty,uuid"`
}

// TeamCreateRequest represents the request structure for creating teams
type TeamCreateRequest struct {
	Name           string  `json:"name" validate:"required,min=1,max=200"`
	Description    *string `json:"description" validate:"omitempty,max=1000"`
	BusinessUnitID uint    `json:"business_unit_id" validate:"required"`
	LeadID         *string `json:"lead_id" validate:"omitempty,uuid"`
}

// TeamUpdateRequest represents the request structure for updating teams
type TeamUpdateRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description    *string `json:"description" validate:"omitempty,max=1000"`
	BusinessUnitID *uint   `json:"business_unit_id"`
	LeadID         *string `json:"lead_id" validate:"omitempty,uuid"`
}

// BusinessUnitCreateRequest represents the request structure for creating business units
type BusinessUnitCreateRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// BusinessUnitUpdateRequest represents the request structure for updating business units
type BusinessUnitUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

// CycleCreateRequest represents the request structure for creating review cycles
type CycleCreateRequest struct {
	Name        string    `json:"name" validate:"required,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=1000"`
	StartDate   time.Time `json:"start_date" validate:"required"`
	EndDate     time.Time `json:"end_date" validate:"required"`
}

// CycleUpdateRequest represents the request structure for updating review cycles
type CycleUpdateRequest struct {
	Name        *string    `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=1000"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// FeedbackRequestCreate asks a reviewer for feedback about a reviewee.
type FeedbackRequestCreate struct {
	CycleID    uint                `json:"cycle_id" validate:"required"`
	ReviewerID string              `json:"reviewer_id" validate:"required,uuid"`
	RevieweeID string              `json:"reviewee_id" validate:"required,uuid"`
	Kind       models.FeedbackKind `json:"kind" validate:"required,feedback_kind"`
	Message    *string             `json:"message" validate:"omitempty,max=1000"`
	DueDate    *time.Time          `json:"due_date" validate:"omitempty,future_date"`
}

// FeedbackSubmitRequest carries the answers for a pending feedback request.
type FeedbackSubmitRequest struct {
	Answers json.RawMessage `json:"answers" validate:"required"`
	Rating  int             `json:"rating" validate:"required,rating_range"`
	Summary *string         `json:"summary" validate:"omitempty,max=2000"`
}

// FeedbackDeclineRequest declines a pending feedback request.
type FeedbackDeclineRequest struct {
	Reason *string `json:"reason" validate:"omitempty,max=500"`
}

// AssessmentSaveRequest saves self-assessment content as a draft.
type AssessmentSaveRequest struct {
	CycleID uint            `json:"cycle_id" validate:"required"`
	Content json.RawMessage `json:"content" validate:"required"`
}

// AttendanceUpsertRequest records or updates one user's status for one day.
type AttendanceUpsertRequest struct {
	Date     time.Time               `json:"date" validate:"required"`
	Status   models.AttendanceStatus `json:"status" validate:"required,attendance_status"`
	CheckIn  *time.Time              `json:"check_in"`
	CheckOut *time.Time              `json:"check_out"`
	Note     *string                 `json:"note" validate:"omitempty,max=500"`
}

// JiraSyncRequest triggers a statistics sync for one period.
type JiraSyncRequest struct {
	Period  string   `json:"period" validate:"required,period_format"`
	UserIDs []string `json:"user_ids" validate:"omitempty,dive,uuid"`
}
