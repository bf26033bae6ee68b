package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SelfAssessmentStatus string

const (
	AssessmentDraft     SelfAssessmentStatus = "draft"
	AssessmentSubmitted SelfAssessmentStatus = "submitted"
)

// SelfAssessment is a user's own write-up for a review cycle. At most one row
// exists per user and cycle; drafts stay editable until submission.
type SelfAssessment struct {
	ID      uint                 `json:"id" gorm:"primaryKey"`
	UserID  string               `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_assessment_user_cycle"`
	CycleID uint                 `json:"cycle_id" gorm:"not null;uniqueIndex:idx_assessment_user_cycle"`
	Content datatypes.JSON       `json:"content" gorm:"type:jsonb"`
	Status  SelfAssessmentStatus `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`

	SubmittedAt *time.Time `json:"submitted_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	User  *User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Cycle *ReviewCycle `json:"cycle,omitempty" gorm:"foreignKey:CycleID"`
}

func (SelfAssessment) TableName() string {
	return "self_assessments"
}

// Editable reports whether the assessment can still be modified.
func (a *SelfAssessment) Editable() bool {
	return a.Status == AssessmentDraft
}
