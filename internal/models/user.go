package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleEmployee UserRole = "employee"
	RoleManager  UserRole = "manager"
	RoleAdmin    UserRole = "admin"
)

// roleLevels defines the total authorization order: employee < manager < admin.
var roleLevels = map[UserRole]int{
	RoleEmployee: 1,
	RoleManager:  2,
	RoleAdmin:    3,
}

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// Level returns the numeric rank of the role. Unknown roles rank at 0,
// below every known role.
func (r UserRole) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether the role grants at least the given minimum's access.
// An unknown role never satisfies any minimum.
func (r UserRole) AtLeast(min UserRole) bool {
	return roleLevels[r] != 0 && roleLevels[r] >= roleLevels[min]
}

type User struct {
	ID           string   `json:"id" gorm:"primaryKey;size:255"`
	FullName     string   `json:"full_name" gorm:"not null;size:100"`
	Email        string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	PasswordHash string   `json:"-" gorm:"not null;size:255"`
	Role         UserRole `json:"role" gorm:"type:varchar(20);not null;default:'employee'"`

	// Org placement. ManagerID forms a tree; cycle checks happen at
	// reassignment time in the user service.
	ManagerID *string `json:"manager_id" gorm:"size:255;index"`
	TeamID    *uint   `json:"team_id" gorm:"index"`
	Position  *string `json:"position" gorm:"size:100"`

	// Profile info
	AvatarURL    *string `json:"avatar_url" gorm:"size:500"`
	JiraUsername *string `json:"jira_username" gorm:"size:100"`

	// Status
	Active bool `json:"active" gorm:"not null;default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Manager *User `json:"manager,omitempty" gorm:"foreignKey:ManagerID"`
	Team    *Team `json:"team,omitempty" gorm:"foreignKey:TeamID"`
}

func (User) TableName() string {
	return "users"
}
