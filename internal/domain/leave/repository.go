package leave

import (
	"context"
)

// LeaveRequestRepository is the leave log. UpdateByKey is the only in-place
// mutation and must touch exactly one row.
type LeaveRequestRepository interface {
	Append(ctx context.Context, request LeaveRequest) (LeaveRequest, error)
	GetByID(ctx context.Context, id string) (LeaveRequest, error)
	ListAll(ctx context.Context) ([]LeaveRequest, error)
	ListPending(ctx context.Context) ([]LeaveRequest, error)
	UpdateByKey(ctx context.Context, id string, update LeaveUpdate) error
	Exists(ctx context.Context, id string) (bool, error)
}
