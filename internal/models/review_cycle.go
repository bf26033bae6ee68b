package models

import (
	"time"

	"gorm.io/gorm"
)

type CycleStatus string

const (
	CycleDraft  CycleStatus = "draft"
	CycleOpen   CycleStatus = "open"
	CycleClosed CycleStatus = "closed"
)

// ReviewCycle is a review period. Feedback requests and self-assessments
// attach to exactly one cycle and can only be submitted while it is open.
type ReviewCycle struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	Name        string      `json:"name" gorm:"not null;size:100"`
	Description *string     `json:"description" gorm:"size:1000"`
	StartDate   time.Time   `json:"start_date" gorm:"not null"`
	EndDate     time.Time   `json:"end_date" gorm:"not null"`
	Status      CycleStatus `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`

	OpenedAt *time.Time `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at"`

	CreatedBy string `json:"created_by" gorm:"not null;size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (ReviewCycle) TableName() string {
	return "review_cycles"
}

// IsOpen reports whether the cycle currently accepts submissions.
func (rc *ReviewCycle) IsOpen() bool {
	return rc.Status == CycleOpen
}

// cycleTransitions lists the allowed status transitions. Closed is terminal.
var cycleTransitions = map[CycleStatus][]CycleStatus{
	CycleDraft:  {CycleOpen},
	CycleOpen:   {CycleClosed},
	CycleClosed: {},
}

// CanTransitionTo reports whether the cycle may move to the given status.
func (rc *ReviewCycle) CanTransitionTo(next CycleStatus) bool {
	for _, allowed := range cycleTransitions[rc.Status] {
		if next == allowed {
			return true
		}
	}
	return false
}
