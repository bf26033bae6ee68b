package models

import "time"

type AttendanceStatus string

const (
	AttendancePresent  AttendanceStatus = "present"
	AttendanceRemote   AttendanceStatus = "remote"
	AttendanceVacation AttendanceStatus = "vacation"
	AttendanceSick     AttendanceStatus = "sick"
	AttendanceAbsent   AttendanceStatus = "absent"
)

var attendanceStatuses = map[AttendanceStatus]bool{
	AttendancePresent:  true,
	AttendanceRemote:   true,
	AttendanceVacation: true,
	AttendanceSick:     true,
	AttendanceAbsent:   true,
}

func (s AttendanceStatus) Valid() bool {
	return attendanceStatuses[s]
}

// AttendanceRecord tracks one user's status for one calendar day. Date is
// stored truncated to midnight UTC; one record per user per day. Deletes are
// hard so the day can be re-entered without tripping the unique index.
type AttendanceRecord struct {
	ID     uint             `json:"id" gorm:"primaryKey"`
	UserID string           `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_attendance_user_date"`
	Date   time.Time        `json:"date" gorm:"not null;uniqueIndex:idx_attendance_user_date"`
	Status AttendanceStatus `json:"status" gorm:"type:varchar(20);not null"`

	CheckIn  *time.Time `json:"check_in"`
	CheckOut *time.Time `json:"check_out"`
	Note     *string    `json:"note" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}
