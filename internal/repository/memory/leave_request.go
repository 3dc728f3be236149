package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
)

type leaveRequestRepository struct {
	mu       sync.RWMutex
	requests map[string]leave.LeaveRequest
	order    []string
}

func NewLeaveRequestRepository() leave.LeaveRequestRepository {
	return &leaveRequestRepository{requests: make(map[string]leave.LeaveRequest)}
}

func clone(req leave.LeaveRequest) leave.LeaveRequest {
	req.Attachments = append([]notification.Attachment(nil), req.Attachments...)
	return req
}

func (r *leaveRequestRepository) Append(ctx context.Context, req leave.LeaveRequest) (leave.LeaveRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[req.ID]; exists {
		return leave.LeaveRequest{}, fmt.Errorf("leave request %s already exists", req.ID)
	}
	now := time.Now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	r.requests[req.ID] = clone(req)
	r.order = append(r.order, req.ID)
	return clone(req), nil
}

func (r *leaveRequestRepository) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.requests[id]
	if !ok {
		return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
	}
	return clone(req), nil
}

func (r *leaveRequestRepository) list(keep func(leave.LeaveRequest) bool) []leave.LeaveRequest {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]leave.LeaveRequest, 0, len(r.order))
	for _, id := range r.order {
		if req := r.requests[id]; keep(req) {
			out = append(out, clone(req))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

func (r *leaveRequestRepository) ListAll(ctx context.Context) ([]leave.LeaveRequest, error) {
	return r.list(func(leave.LeaveRequest) bool { return true }), nil
}

func (r *leaveRequestRepository) ListPending(ctx context.Context) ([]leave.LeaveRequest, error) {
	return r.list(leave.LeaveRequest.IsPending), nil
}

func (r *leaveRequestRepository) UpdateByKey(ctx context.Context, id string, update leave.LeaveUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.requests[id]
	if !ok {
		return leave.ErrLeaveRequestNotFound
	}
	if update.Status != nil {
		req.Status = *update.Status
	}
	if update.ApprovedBy != nil {
		req.ApprovedBy = update.ApprovedBy
	}
	if update.DecidedAt != nil {
		req.DecidedAt = update.DecidedAt
	}
	if update.DenialReason != nil {
		req.DenialReason = update.DenialReason
	}
	if update.Attachments != nil {
		req.Attachments = append([]notification.Attachment(nil), update.Attachments...)
	}
	if update.ReviewRef != nil {
		req.ReviewRef = *update.ReviewRef
	}
	req.UpdatedAt = time.Now()
	r.requests[id] = req
	return nil
}

func (r *leaveRequestRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.requests[id]
	return ok, nil
}
