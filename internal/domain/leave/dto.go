package leave

import (
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/validator"
)

// SubmitRequest carries the reason typed by the requester.
type SubmitRequest struct {
	Handle string
	ChatID int64
	Reason string
}

func (r *SubmitRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Handle) {
		errs = append(errs, validator.ValidationError{
			Field:   "handle",
			Message: "handle is required",
		})
	}
	if validator.IsEmpty(r.Reason) {
		return ErrEmptyReason
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// DecisionRequest is a reviewer pressing approve or deny.
type DecisionRequest struct {
	RequestID string
	Reviewer  string
	// Where the reviewer pressed the button; the denial prompt replies there.
	Origin notification.MessageRef
}

// DenialReply is a message that may answer a denial prompt.
type DenialReply struct {
	Reviewer  string
	ReplyTo   notification.MessageRef
	Text      string
	MessageID int
}

type LeaveRequestResponse struct {
	ID           string                    `json:"id"`
	Handle       string                    `json:"handle"`
	Name         string                    `json:"name"`
	Reason       string                    `json:"reason"`
	SubmittedAt  string                    `json:"submitted_at"`
	Status       string                    `json:"status"`
	ApprovedBy   *string                   `json:"approved_by,omitempty"`
	DecidedAt    *string                   `json:"decided_at,omitempty"`
	DenialReason *string                   `json:"denial_reason,omitempty"`
	Attachments  []notification.Attachment `json:"attachments"`
}

func ToResponse(r LeaveRequest) LeaveRequestResponse {
	resp := LeaveRequestResponse{
		ID:           r.ID,
		Handle:       r.Handle,
		Name:         r.Name,
		Reason:       r.Reason,
		SubmittedAt:  r.SubmittedAt.Format("2006-01-02 15:04:05"),
		Status:       string(r.Status),
		ApprovedBy:   r.ApprovedBy,
		DenialReason: r.DenialReason,
		Attachments:  r.Attachments,
	}
	if r.DecidedAt != nil {
		s := r.DecidedAt.Format("2006-01-02 15:04:05")
		resp.DecidedAt = &s
	}
	if resp.Attachments == nil {
		resp.Attachments = []notification.Attachment{}
	}
	return resp
}
