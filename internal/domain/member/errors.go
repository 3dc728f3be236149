package member

import "errors"

var (
	ErrMissingHandle = errors.New("a chat username is required")
	ErrNotRegistered = errors.New("member is not registered")
	ErrNoChatID      = errors.New("member has not started a conversation yet")

	// Attendance guard errors
	ErrAlreadyClockedIn  = errors.New("already clocked in today")
	ErrNotYetClockedIn   = errors.New("not clocked in yet today")
	ErrAlreadyClockedOut = errors.New("already clocked out today")
)
