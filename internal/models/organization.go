package models

import (
	"time"

	"gorm.io/gorm"
)

// BusinessUnit is the top level of the org structure; teams belong to exactly
// one business unit.
type BusinessUnit struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	Name        string  `json:"name" gorm:"uniqueIndex;not null;size:100"`
	Description *string `json:"description" gorm:"size:500"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Teams []Team `json:"teams,omitempty" gorm:"foreignKey:BusinessUnitID"`
}

func (BusinessUnit) TableName() string {
	return "business_units"
}

// Team groups users within a business unit. Names are unique per unit, not
// globally.
type Team struct {
	ID             uint    `json:"id" gorm:"primaryKey"`
	Name           string  `json:"name" gorm:"not null;size:100;uniqueIndex:idx_team_unit_name"`
	Description    *string `json:"description" gorm:"size:500"`
	BusinessUnitID uint    `json:"business_unit_id" gorm:"not null;index;uniqueIndex:idx_team_unit_name"`
	LeadID         *string `json:"lead_id" gorm:"size:255"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	BusinessUnit *BusinessUnit `json:"business_unit,omitempty" gorm:"foreignKey:BusinessUnitID"`
	Lead         *User         `json:"lead,omitempty" gorm:"foreignKey:LeadID"`

	// Computed fields (not persisted)
	MemberCount int `json:"member_count" gorm:"-"`
}

func (Team) TableName() string {
	return "teams"
}
