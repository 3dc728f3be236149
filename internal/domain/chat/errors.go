package chat

import "errors"

var (
	ErrSupervisorOnly = errors.New("this command is only available to supervisors")
	ErrUsage          = errors.New("invalid command usage")
	ErrUnknownEvent   = errors.New("unknown chat event")
)
