package leave

import (
	"context"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
)

// LeaveService drives leave requests from submission to decision.
type LeaveService interface {
	// BeginRequest marks the member as about to type a leave reason.
	BeginRequest(ctx context.Context, handle string) error
	AwaitingReason(handle string) bool
	CancelRequest(handle string)

	Submit(ctx context.Context, req SubmitRequest) (LeaveRequest, error)
	AddAttachment(ctx context.Context, handle string, att notification.Attachment) (LeaveRequest, error)

	Approve(ctx context.Context, req DecisionRequest) (LeaveRequest, error)

	// BeginDenial opens the reviewer's justification prompt.
	BeginDenial(ctx context.Context, req DecisionRequest) (notification.MessageRef, error)

	// SubmitDenialReason completes a denial. handled is false when the
	// message does not answer the reviewer's open prompt.
	SubmitDenialReason(ctx context.Context, reply DenialReply) (req LeaveRequest, handled bool, err error)

	// RestorePending reloads undecided requests from the leave log.
	RestorePending(ctx context.Context) error

	ListPending() []LeaveRequest
	List(ctx context.Context) ([]LeaveRequestResponse, error)
}
