package leave

import "errors"

var (
	ErrLeaveRequestNotFound = errors.New("leave request not found")
	ErrAlreadyDecided       = errors.New("leave request has already been decided")
	ErrNotReviewer          = errors.New("only supervisors can decide leave requests")
	ErrReasonAlreadyPending = errors.New("a leave request is already waiting for its reason")
	ErrNoPendingLeave       = errors.New("no pending leave request to attach to")
	ErrReviewUnavailable    = errors.New("leave request could not be posted for review")
	ErrEmptyReason          = errors.New("leave reason must not be empty")
)
