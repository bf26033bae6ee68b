package models

import "time"

// Session is the server-side record backing an issued token. A token is only
// usable while its session row exists; deleting the row revokes access
// regardless of the token's own expiry.
type Session struct {
	ID             string    `json:"id" gorm:"primaryKey;size:255"`
	UserID         string    `json:"user_id" gorm:"not null;size:255;index"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at" gorm:"not null"`
	ExpiresAt      time.Time `json:"expires_at" gorm:"not null;index"`

	// Request metadata captured at login.
	UserAgent *string `json:"user_agent,omitempty" gorm:"size:500"`
	ClientIP  *string `json:"client_ip,omitempty" gorm:"size:64"`
}

func (Session) TableName() string {
	return "sessions"
}

// Expired reports whether the session is unusable at the given time.
// ExpiresAt is a hard ceiling fixed at creation; the idle timeout only ever
// shortens a session's life, activity never extends it past the ceiling.
func (s *Session) Expired(now time.Time, idleTimeout time.Duration) bool {
	if now.After(s.ExpiresAt) {
		return true
	}
	return now.Sub(s.LastActivityAt) > idleTimeout
}

// IdleDeadline returns the time at which the session expires if no further
// activity is recorded, capped at the absolute ceiling.
func (s *Session) IdleDeadline(idleTimeout time.Duration) time.Time {
	idle := s.LastActivityAt.Add(idleTimeout)
	if idle.After(s.ExpiresAt) {
		return s.ExpiresAt
	}
	return idle
}
