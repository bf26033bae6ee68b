package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type FeedbackKind string

const (
	// FeedbackColleague is peer feedback requested from a colleague.
	FeedbackColleague FeedbackKind = "colleague"
	// FeedbackManager is feedback written by the reviewee's manager.
	FeedbackManager FeedbackKind = "manager"
)

type FeedbackRequestStatus string

const (
	RequestPending   FeedbackRequestStatus = "pending"
	RequestSubmitted FeedbackRequestStatus = "submitted"
	RequestDeclined  FeedbackRequestStatus = "declined"
)

// FeedbackRequest asks a reviewer to write feedback about a reviewee within a
// cycle. The submitted answers live in a separate Feedback row so a declined
// or pending request carries no content.
type FeedbackRequest struct {
	ID          uint                  `json:"id" gorm:"primaryKey"`
	CycleID     uint                  `json:"cycle_id" gorm:"not null;index"`
	RequesterID string                `json:"requester_id" gorm:"not null;size:255"`
	ReviewerID  string                `json:"reviewer_id" gorm:"not null;size:255;index"`
	RevieweeID  string                `json:"reviewee_id" gorm:"not null;size:255;index"`
	Kind        FeedbackKind          `json:"kind" gorm:"type:varchar(20);not null"`
	Status      FeedbackRequestStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending'"`
	Message     *string               `json:"message" gorm:"size:1000"`
	DueDate     *time.Time            `json:"due_date"`

	DeclinedReason *string `json:"declined_reason" gorm:"size:500"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Cycle    *ReviewCycle `json:"cycle,omitempty" gorm:"foreignKey:CycleID"`
	Reviewer *User        `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID"`
	Reviewee *User        `json:"reviewee,omitempty" gorm:"foreignKey:RevieweeID"`

	// Computed fields (not persisted)
	Overdue bool `json:"overdue" gorm:"-"`
}

func (FeedbackRequest) TableName() string {
	return "feedback_requests"
}

// Feedback holds the submitted answers for a request. One row per request.
type Feedback struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	RequestID  uint           `json:"request_id" gorm:"uniqueIndex;not null"`
	CycleID    uint           `json:"cycle_id" gorm:"not null;index"`
	ReviewerID string         `json:"reviewer_id" gorm:"not null;size:255;index"`
	RevieweeID string         `json:"reviewee_id" gorm:"not null;size:255;index"`
	Kind       FeedbackKind   `json:"kind" gorm:"type:varchar(20);not null"`
	Answers    datatypes.JSON `json:"answers" gorm:"type:jsonb;not null"`
	Rating     int            `json:"rating" gorm:"not null"`
	Summary    *string        `json:"summary" gorm:"size:2000"`

	SubmittedAt time.Time `json:"submitted_at" gorm:"not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Request  *FeedbackRequest `json:"request,omitempty" gorm:"foreignKey:RequestID"`
	Reviewer *User            `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID"`
	Reviewee *User            `json:"reviewee,omitempty" gorm:"foreignKey:RevieweeID"`
}

func (Feedback) TableName() string {
	return "feedback"
}
