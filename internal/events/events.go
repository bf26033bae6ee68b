package events

import "github.com/reviewloop/review-service/internal/models"

// Kafka topics, one per aggregate
const (
	TopicUserEvents         = "review.users"
	TopicSessionEvents      = "review.sessions"
	TopicCycleEvents        = "review.cycles"
	TopicFeedbackEvents     = "review.feedback"
	TopicNotificationEvents = "review.notifications"
)

// Event types
const (
	EventUserCreated         = "user.created"
	EventUserRoleChanged     = "user.role_changed"
	EventUserDeactivated     = "user.deactivated"
	EventSessionRevoked      = "session.revoked"
	EventCycleOpened         = "review_cycle.opened"
	EventCycleClosed         = "review_cycle.closed"
	EventFeedbackRequested   = "feedback.requested"
	EventFeedbackSubmitted   = "feedback.submitted"
	EventFeedbackDeclined    = "feedback.declined"
	EventAssessmentSubmitted = "assessment.submitted"
	EventFeedbackReminder    = "notification.feedback_reminder"
)

var eventTopics = map[string]string{
	EventUserCreated:         TopicUserEvents,
	EventUserRoleChanged:     TopicUserEvents,
	EventUserDeactivated:     TopicUserEvents,
	EventSessionRevoked:      TopicSessionEvents,
	EventCycleOpened:         TopicCycleEvents,
	EventCycleClosed:         TopicCycleEvents,
	EventFeedbackRequested:   TopicFeedbackEvents,
	EventFeedbackSubmitted:   TopicFeedbackEvents,
	EventFeedbackDeclined:    TopicFeedbackEvents,
	EventAssessmentSubmitted: TopicFeedbackEvents,
	EventFeedbackReminder:    TopicNotificationEvents,
}

// TopicFor returns the topic an event type is published to.
func TopicFor(eventType string) string {
	if topic, ok := eventTopics[eventType]; ok {
		return topic
	}
	return TopicUserEvents
}

// ===== EVENT PAYLOADS =====

type UserCreatedEvent struct {
	UserID    string          `json:"user_id"`
	Email     string          `json:"email"`
	FullName  string          `json:"full_name"`
	Role      models.UserRole `json:"role"`
	CreatedBy string          `json:"created_by"`
}

type UserRoleChangedEvent struct {
	UserID    string          `json:"user_id"`
	OldRole   models.UserRole `json:"old_role"`
	NewRole   models.UserRole `json:"new_role"`
	ChangedBy string          `json:"changed_by"`
}

type UserDeactivatedEvent struct {
	UserID        string `json:"user_id"`
	DeactivatedBy string `json:"deactivated_by"`
}

type SessionRevokedEvent struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Reason    string `json:"reason"` // "expired", "logout", "revoked"
}

type CycleStatusEvent struct {
	CycleID   uint               `json:"cycle_id"`
	Name      string             `json:"name"`
	Status    models.CycleStatus `json:"status"`
	ChangedBy string             `json:"changed_by"`
}

type FeedbackRequestedEvent struct {
	RequestID   uint                `json:"request_id"`
	CycleID     uint                `json:"cycle_id"`
	RequesterID string              `json:"requester_id"`
	ReviewerID  string              `json:"reviewer_id"`
	RevieweeID  string              `json:"reviewee_id"`
	Kind        models.FeedbackKind `json:"kind"`
}

type FeedbackSubmittedEvent struct {
	FeedbackID uint                `json:"feedback_id"`
	RequestID  uint                `json:"request_id"`
	CycleID    uint                `json:"cycle_id"`
	ReviewerID string              `json:"reviewer_id"`
	RevieweeID string              `json:"reviewee_id"`
	Kind       models.FeedbackKind `json:"kind"`
	Rating     int                 `json:"rating"`
}

type FeedbackDeclinedEvent struct {
	RequestID  uint    `json:"request_id"`
	CycleID    uint    `json:"cycle_id"`
	ReviewerID string  `json:"reviewer_id"`
	Reason     *string `json:"reason,omitempty"`
}

type AssessmentSubmittedEvent struct {
	AssessmentID uint   `json:"assessment_id"`
	UserID       string `json:"user_id"`
	CycleID      uint   `json:"cycle_id"`
}

// FeedbackReminderEvent nudges one reviewer about their open requests in a
// cycle. Consumed by the notification pipeline, not by this service.
type FeedbackReminderEvent struct {
	ReviewerID   string `json:"reviewer_id"`
	CycleID      uint   `json:"cycle_id"`
	CycleName    string `json:"cycle_name"`
	PendingCount int    `json:"pending_count"`
	RequestedBy  string `json:"requested_by"`
}
