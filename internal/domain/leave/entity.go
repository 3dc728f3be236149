package leave

import (
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
)

type LeaveRequestStatus string

const (
	LeaveRequestStatusPending  LeaveRequestStatus = "pending"
	LeaveRequestStatusApproved LeaveRequestStatus = "approved"
	LeaveRequestStatusDenied   LeaveRequestStatus = "denied"
)

// LeaveRequest entity. Rows are never deleted.
type LeaveRequest struct {
	ID              string
	Handle          string
	Name            string
	RequesterChatID int64
	Reason          string
	SubmittedAt     time.Time

	Status       LeaveRequestStatus
	ApprovedBy   *string
	DecidedAt    *time.Time
	DenialReason *string

	Attachments []notification.Attachment
	ReviewRef   notification.MessageRef

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (r LeaveRequest) IsPending() bool {
	return r.Status == LeaveRequestStatusPending
}

// ShortReason is the reason cut to n runes, used in attachment captions.
func (r LeaveRequest) ShortReason(n int) string {
	runes := []rune(r.Reason)
	if len(runes) <= n {
		return r.Reason
	}
	return string(runes[:n]) + "..."
}

// LeaveUpdate lists the columns UpdateByKey may change; nil fields are left untouched.
type LeaveUpdate struct {
	Status       *LeaveRequestStatus
	ApprovedBy   *string
	DecidedAt    *time.Time
	DenialReason *string
	Attachments  []notification.Attachment
	ReviewRef    *notification.MessageRef
}
