package models

import (
	"time"

	"gorm.io/datatypes"
)

// JiraUserStat caches synced Jira activity for a user over one monthly period
// ("2006-01"). One row per user and period, replaced on re-sync.
type JiraUserStat struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_jira_user_period"`
	Period string `json:"period" gorm:"not null;size:7;uniqueIndex:idx_jira_user_period"`

	IssuesCreated    int     `json:"issues_created" gorm:"not null;default:0"`
	IssuesResolved   int     `json:"issues_resolved" gorm:"not null;default:0"`
	IssuesInProgress int     `json:"issues_in_progress" gorm:"not null;default:0"`
	StoryPoints      float64 `json:"story_points" gorm:"not null;default:0"`

	RawPayload datatypes.JSON `json:"-" gorm:"type:jsonb"`
	SyncedAt   time.Time      `json:"synced_at" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (JiraUserStat) TableName() string {
	return "jira_user_stats"
}
