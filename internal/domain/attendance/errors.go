package attendance

import "errors"

// Attendance workflow errors
var (
	ErrHandshakeInProgress = errors.New("a location check is already in progress")
	ErrHandshakeTimeout    = errors.New("location check timed out, please try again")
	ErrInvalidKind         = errors.New("invalid clock action")
	ErrShuttingDown        = errors.New("the service is restarting, please try again in a minute")
)
