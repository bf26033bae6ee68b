package models

import "testing"

func TestUserRoleAtLeast(t *testing.T) {
	tests := []struct {
		name string
		role UserRole
		min  UserRole
		want bool
	}{
		{name: "employee meets employee", role: RoleEmployee, min: RoleEmployee, want: true},
		{name: "employee below manager", role: RoleEmployee, min: RoleManager, want: false},
		{name: "employee below admin", role: RoleEmployee, min: RoleAdmin, want: false},
		{name: "manager meets employee", role: RoleManager, min: RoleEmployee, want: true},
		{name: "manager meets manager", role: RoleManager, min: RoleManager, want: true},
		{name: "manager below admin", role: RoleManager, min: RoleAdmin, want: false},
		{name: "admin meets everything", role: RoleAdmin, min: RoleEmployee, want: true},
		{name: "admin meets admin", role: RoleAdmin, min: RoleAdmin, want: true},
		{name: "unknown role meets nothing", role: UserRole("root"), min: RoleEmployee, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.AtLeast(tt.min); got != tt.want {
				t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.role, tt.min, got, tt.want)
			}
		})
	}
}

func TestUserRoleValid(t *testing.T) {
	for _, r := range []UserRole{RoleEmployee, RoleManager, RoleAdmin} {
		if !r.Valid() {
			t.Errorf("Valid() = false for %s", r)
		}
	}
	if UserRole("superuser").Valid() {
		t.Error("Valid() = true for unknown role")
	}
}

func TestCycleTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current CycleStatus
		next    CycleStatus
		want    bool
	}{
		{name: "draft to open", current: CycleDraft, next: CycleOpen, want: true},
		{name: "open to closed", current: CycleOpen, next: CycleClosed, want: true},
		{name: "draft to closed", current: CycleDraft, next: CycleClosed, want: false},
		{name: "closed is terminal", current: CycleClosed, next: CycleOpen, want: false},
		{name: "open back to draft", current: CycleOpen, next: CycleDraft, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ReviewCycle{Status: tt.current}
			if got := c.CanTransitionTo(tt.next); got != tt.want {
				t.Errorf("CanTransitionTo(%s) from %s = %v, want %v", tt.next, tt.current, got, tt.want)
			}
		})
	}
}
