package services

import (
	"errors"
	"fmt"

	"github.com/reviewloop/review-service/internal/validator"
)

// ===== SENTINEL ERRORS =====

// Service errors map to HTTP statuses in the handler layer. Repositories
// return their own not-found errors; services translate them here so handlers
// never see gorm.

var (
	// Authentication and sessions
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user account is deactivated")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")

	// Users and organization
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailTaken            = errors.New("email address already in use")
	ErrManagerCycle          = errors.New("manager assignment would create a cycle")
	ErrTeamNotFound          = errors.New("team not found")
	ErrTeamNameTaken         = errors.New("team name already in use")
	ErrTeamNotEmpty          = errors.New("team still has members")
	ErrBusinessUnitNotFound  = errors.New("business unit not found")
	ErrBusinessUnitNameTaken = errors.New("business unit name already in use")
	ErrBusinessUnitNotEmpty  = errors.New("business unit still has teams")

	// Review cycles
	ErrCycleNotFound   = errors.New("review cycle not found")
	ErrCycleNameTaken  = errors.New("review cycle name already in use")
	ErrCycleNotOpen    = errors.New("review cycle is not open")
	ErrCycleNotDraft   = errors.New("review cycle is not a draft")
	ErrOpenCycleExists = errors.New("another review cycle is already open")

	// Feedback
	ErrFeedbackRequestNotFound = errors.New("feedback request not found")
	ErrFeedbackNotFound        = errors.New("feedback not found")
	ErrDuplicateRequest        = errors.New("an equivalent feedback request already exists")
	ErrRequestNotPending       = errors.New("feedback request is not pending")
	ErrSelfReview              = errors.New("users cannot review themselves")

	// Self-assessments
	ErrAssessmentNotFound  = errors.New("self-assessment not found")
	ErrAssessmentSubmitted = errors.New("self-assessment is already submitted")

	// Attendance
	ErrAttendanceNotFound = errors.New("attendance record not found")

	// Jira integration
	ErrJiraNotConfigured = errors.New("jira integration is not configured")
	ErrJiraStatsNotFound = errors.New("no jira statistics for this user and period")
)

// ===== PERMISSION ERRORS =====

// PermissionError carries who tried to do what to which resource. Handlers
// map it to 403; the reason is logged, not returned to the client.
type PermissionError struct {
	UserID     string
	ResourceID any
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID any, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s: %s", e.UserID, e.Action, e.Resource, e.Reason)
}

// IsPermissionError reports whether err is (or wraps) a PermissionError.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// ===== VALIDATION ERRORS =====

// NewValidationError builds a single-field business rule failure in the same
// shape the validator package produces for tag failures.
func NewValidationError(field, message string, value interface{}) validator.ValidationErrors {
	return validator.ValidationErrors{{
		Field:   field,
		Message: message,
		Value:   value,
		Rule:    "business_logic",
	}}
}

// IsValidationError reports whether err is a set of field validation failures.
func IsValidationError(err error) bool {
	var ve validator.ValidationErrors
	return errors.As(err, &ve)
}
