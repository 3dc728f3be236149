package member

import (
	"strings"
	"time"
)

type Role string

const (
	RoleEmployee   Role = "employee"
	RoleSupervisor Role = "supervisor"
)

// ParseRole normalizes a stored role, defaulting to employee.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSupervisor:
		return RoleSupervisor
	default:
		return RoleEmployee
	}
}

// Member is one entry of the organization directory.
type Member struct {
	Handle    string
	Name      string
	Latitude  float64
	Longitude float64
	Address   string
	Role      Role
	ChatID    *int64

	// Volatile, reset nightly
	Marks DailyMarks
}

func (m Member) IsSupervisor() bool {
	return m.Role == RoleSupervisor
}

// NormalizeHandle lowercases a chat handle and strips a leading '@'.
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// AttendanceState is the per-day clock state of a member.
type AttendanceState string

const (
	StateNotIn AttendanceState = "not_in"
	StateIn    AttendanceState = "in"
	StateOut   AttendanceState = "out"
)

// DailyMarks holds today's clock-in/clock-out marks. The zero value is NotIn.
type DailyMarks struct {
	State    AttendanceState
	ClockIn  *time.Time
	ClockOut *time.Time
}

func (d DailyMarks) Current() AttendanceState {
	if d.State == "" {
		return StateNotIn
	}
	return d.State
}

// MarkIn moves NotIn -> In.
func (d *DailyMarks) MarkIn(at time.Time) error {
	if d.Current() != StateNotIn {
		return ErrAlreadyClockedIn
	}
	t := at
	d.ClockIn = &t
	d.State = StateIn
	return nil
}

// MarkOut moves In -> Out. The clock-in must be on the same calendar day.
func (d *DailyMarks) MarkOut(at time.Time) error {
	switch d.Current() {
	case StateNotIn:
		return ErrNotYetClockedIn
	case StateOut:
		return ErrAlreadyClockedOut
	}
	if d.ClockIn == nil || !sameDay(*d.ClockIn, at) {
		return ErrNotYetClockedIn
	}
	t := at
	d.ClockOut = &t
	d.State = StateOut
	return nil
}

// Reset clears the marks back to NotIn.
func (d *DailyMarks) Reset() {
	*d = DailyMarks{State: StateNotIn}
}

// StaleBefore reports whether the marks belong to a day that ended before start.
func (d DailyMarks) StaleBefore(start time.Time) bool {
	return d.ClockIn != nil && d.ClockIn.Before(start)
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
