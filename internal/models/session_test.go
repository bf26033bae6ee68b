package models

import (
	"testing"
	"time"
)

func TestSessionExpired(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	idle := 30 * time.Minute

	tests := []struct {
		name    string
		session Session
		now     time.Time
		want    bool
	}{
		{
			name: "fresh session",
			session: Session{
				CreatedAt:      base,
				LastActivityAt: base,
				ExpiresAt:      base.Add(12 * time.Hour),
			},
			now:  base.Add(5 * time.Minute),
			want: false,
		},
		{
			name: "idle for longer than timeout",
			session: Session{
				CreatedAt:      base,
				LastActivityAt: base,
				ExpiresAt:      base.Add(12 * time.Hour),
			},
			now:  base.Add(31 * time.Minute),
			want: true,
		},
		{
			name: "exactly at idle timeout",
			session: Session{
				CreatedAt:      base,
				LastActivityAt: base,
				ExpiresAt:      base.Add(12 * time.Hour),
			},
			now:  base.Add(30 * time.Minute),
			want: false,
		},
		{
			name: "past absolute expiry despite recent activity",
			session: Session{
				CreatedAt:      base,
				LastActivityAt: base.Add(12 * time.Hour),
				ExpiresAt:      base.Add(12 * time.Hour),
			},
			now:  base.Add(12*time.Hour + time.Second),
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.session.Expired(tt.now, idle); got != tt.want {
				t.Errorf("Expired() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Activity close to the absolute expiry must not push the session past it:
// the ceiling is fixed at creation and only the idle window moves.
func TestSessionIdleDeadlineCappedAtExpiry(t *testing.T) {
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	idle := 30 * time.Minute

	s := Session{
		CreatedAt:      base,
		LastActivityAt: base.Add(11*time.Hour + 50*time.Minute),
		ExpiresAt:      base.Add(12 * time.Hour),
	}

	deadline := s.IdleDeadline(idle)
	if deadline.After(s.ExpiresAt) {
		t.Errorf("IdleDeadline() = %v, exceeds absolute expiry %v", deadline, s.ExpiresAt)
	}
	if !deadline.Equal(s.ExpiresAt) {
		t.Errorf("IdleDeadline() = %v, want capped at %v", deadline, s.ExpiresAt)
	}

	s.LastActivityAt = base
	deadline = s.IdleDeadline(idle)
	if !deadline.Equal(base.Add(idle)) {
		t.Errorf("IdleDeadline() = %v, want %v", deadline, base.Add(idle))
	}
}
