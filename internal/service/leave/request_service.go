package leave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/validator"
)

const captionReasonRunes = 30

// pendingEntry serializes every transition of one undecided request.
type pendingEntry struct {
	mu      sync.Mutex
	request leave.LeaveRequest
	decided bool
}

type denialPrompt struct {
	requestID string
	ref       notification.MessageRef
}

type RequestService struct {
	directory member.Directory
	leave.LeaveRequestRepository
	notifier notification.Service
	now      func() time.Time

	// mu guards the maps below, never a request itself
	mu       sync.Mutex
	pending  map[string]*pendingEntry
	awaiting map[string]struct{} // handles about to type a reason
	current  map[string]string   // handle -> request accepting attachments

	promptMu sync.Mutex
	prompts  map[string]denialPrompt // reviewer handle -> open justification prompt
}

func NewRequestService(directory member.Directory, leaveRequestRepository leave.LeaveRequestRepository, notifier notification.Service) leave.LeaveService {
	return &RequestService{
		directory:              directory,
		LeaveRequestRepository: leaveRequestRepository,
		notifier:               notifier,
		now:                    time.Now,
		pending:                make(map[string]*pendingEntry),
		awaiting:               make(map[string]struct{}),
		current:                make(map[string]string),
		prompts:                make(map[string]denialPrompt),
	}
}

func (r *RequestService) BeginRequest(ctx context.Context, handle string) error {
	m, err := r.directory.Get(handle)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.awaiting[m.Handle]; ok {
		return leave.ErrReasonAlreadyPending
	}
	r.awaiting[m.Handle] = struct{}{}
	return nil
}

func (r *RequestService) AwaitingReason(handle string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.awaiting[member.NormalizeHandle(handle)]
	return ok
}

func (r *RequestService) CancelRequest(handle string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.awaiting, member.NormalizeHandle(handle))
}

// reserveID claims leave_<handle>_<unix> for entry, suffixed _N while the id is taken.
func (r *RequestService) reserveID(ctx context.Context, entry *pendingEntry, handle string, at time.Time) (string, error) {
	base := fmt.Sprintf("leave_%s_%d", handle, at.Unix())
	id := base
	for n := 2; ; n++ {
		r.mu.Lock()
		_, taken := r.pending[id]
		if !taken {
			r.pending[id] = entry
		}
		r.mu.Unlock()

		if !taken {
			exists, err := r.LeaveRequestRepository.Exists(ctx, id)
			if err == nil && !exists {
				return id, nil
			}
			r.mu.Lock()
			delete(r.pending, id)
			r.mu.Unlock()
			if err != nil {
				return "", fmt.Errorf("failed to check leave request id: %w", err)
			}
		}
		id = fmt.Sprintf("%s_%d", base, n)
	}
}

func (r *RequestService) alertWriteFailure(ctx context.Context, id, op string, err error) {
	slog.Error("Leave log write failed", "request_id", id, "op", op, "error", err)
	r.notifier.AlertOperator(ctx, fmt.Sprintf("Leave log write failed (%s %s): %v", op, id, err))
}

func (r *RequestService) Submit(ctx context.Context, req leave.SubmitRequest) (leave.LeaveRequest, error) {
	if err := req.Validate(); err != nil {
		return leave.LeaveRequest{}, err
	}

	m, err := r.directory.Get(req.Handle)
	if err != nil {
		return leave.LeaveRequest{}, err
	}
	r.CancelRequest(m.Handle)

	// The entry is locked before it becomes visible, so a decision on the
	// freshly posted prompt waits until the review reference is stored.
	entry := &pendingEntry{}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	id, err := r.reserveID(ctx, entry, m.Handle, now)
	if err != nil {
		entry.decided = true
		return leave.LeaveRequest{}, err
	}

	request := leave.LeaveRequest{
		ID:              id,
		Handle:          m.Handle,
		Name:            m.Name,
		RequesterChatID: req.ChatID,
		Reason:          req.Reason,
		SubmittedAt:     now,
		Status:          leave.LeaveRequestStatusPending,
	}
	entry.request = request

	if saved, err := r.LeaveRequestRepository.Append(ctx, request); err != nil {
		r.alertWriteFailure(ctx, id, "append", err)
	} else {
		entry.request = saved
	}

	text := fmt.Sprintf("Leave request\n\nMember: %s (@%s)\nReason: %s\n\nPlease review:", m.Name, m.Handle, req.Reason)
	ref, err := r.notifier.PostReview(ctx, text, []notification.Action{
		{Label: "Approve", Data: leave.ApproveCallback(id)},
		{Label: "Deny", Data: leave.DenyCallback(id)},
	}, notification.Event{
		Type: notification.TypeLeaveRequest,
		Data: map[string]interface{}{"request_id": id, "handle": m.Handle, "reason": req.Reason},
	})
	if err != nil {
		// The durable row stays as an audit record of the attempt
		slog.Warn("Failed to post leave request for review", "request_id", id, "error", err)
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
		entry.decided = true
		return leave.LeaveRequest{}, leave.ErrReviewUnavailable
	}

	entry.request.ReviewRef = ref
	if err := r.LeaveRequestRepository.UpdateByKey(ctx, id, leave.LeaveUpdate{ReviewRef: &ref}); err != nil {
		r.alertWriteFailure(ctx, id, "review reference", err)
	}

	r.mu.Lock()
	r.current[m.Handle] = id
	r.mu.Unlock()

	slog.Info("Leave request submitted", "request_id", id, "handle", m.Handle)
	return entry.request, nil
}

func (r *RequestService) AddAttachment(ctx context.Context, handle string, att notification.Attachment) (leave.LeaveRequest, error) {
	key := member.NormalizeHandle(handle)

	r.mu.Lock()
	entry, ok := r.pending[r.current[key]]
	r.mu.Unlock()
	if !ok {
		return leave.LeaveRequest{}, leave.ErrNoPendingLeave
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.decided {
		return leave.LeaveRequest{}, leave.ErrNoPendingLeave
	}

	entry.request.Attachments = append(entry.request.Attachments, att)
	if err := r.LeaveRequestRepository.UpdateByKey(ctx, entry.request.ID, leave.LeaveUpdate{Attachments: entry.request.Attachments}); err != nil {
		r.alertWriteFailure(ctx, entry.request.ID, "attachment", err)
	}

	caption := fmt.Sprintf("Attachment for the leave request of %s (reason: %s)", entry.request.Name, entry.request.ShortReason(captionReasonRunes))
	r.notifier.RelayAttachment(ctx, att, caption, notification.Event{
		Type: notification.TypeLeaveAttachment,
		Data: map[string]interface{}{"request_id": entry.request.ID, "kind": string(att.Kind)},
	})

	return entry.request, nil
}

// reviewer checks that handle may decide leave requests.
func (r *RequestService) reviewer(handle string) (member.Member, error) {
	m, err := r.directory.Get(handle)
	if err != nil || !m.IsSupervisor() {
		return member.Member{}, leave.ErrNotReviewer
	}
	return m, nil
}

// lookup returns the pending entry or tells apart decided and unknown ids.
func (r *RequestService) lookup(ctx context.Context, id string) (*pendingEntry, error) {
	r.mu.Lock()
	entry, ok := r.pending[id]
	r.mu.Unlock()
	if ok {
		return entry, nil
	}

	stored, err := r.LeaveRequestRepository.GetByID(ctx, id)
	if errors.Is(err, leave.ErrLeaveRequestNotFound) {
		return nil, leave.ErrLeaveRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get leave request: %w", err)
	}
	if stored.IsPending() {
		// Pending in the log but not here: its review prompt was never posted
		return nil, leave.ErrLeaveRequestNotFound
	}
	return nil, leave.ErrAlreadyDecided
}

// finish removes a decided entry. Caller holds entry.mu.
func (r *RequestService) finish(ctx context.Context, entry *pendingEntry) {
	entry.decided = true
	id := entry.request.ID

	r.mu.Lock()
	delete(r.pending, id)
	if r.current[entry.request.Handle] == id {
		delete(r.current, entry.request.Handle)
	}
	r.mu.Unlock()

	// Justification prompts other reviewers opened for this request are stale now
	var stale []notification.MessageRef
	r.promptMu.Lock()
	for reviewer, p := range r.prompts {
		if p.requestID == id {
			stale = append(stale, p.ref)
			delete(r.prompts, reviewer)
		}
	}
	r.promptMu.Unlock()

	for _, ref := range stale {
		r.notifier.DeleteMessage(ctx, ref)
	}
}

func (r *RequestService) Approve(ctx context.Context, req leave.DecisionRequest) (leave.LeaveRequest, error) {
	reviewer, err := r.reviewer(req.Reviewer)
	if err != nil {
		return leave.LeaveRequest{}, err
	}
	entry, err := r.lookup(ctx, req.RequestID)
	if err != nil {
		return leave.LeaveRequest{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.decided {
		return leave.LeaveRequest{}, leave.ErrAlreadyDecided
	}

	request := entry.request
	decidedAt := r.now()

	r.notifier.Notify(ctx, request.RequesterChatID,
		fmt.Sprintf("Your leave request (reason: %s) was approved by @%s.", request.Reason, reviewer.Handle))

	r.notifier.EditReview(ctx, request.ReviewRef,
		fmt.Sprintf("Approved the leave request of %s.\nReason: %s\n(by @%s)", request.Name, request.Reason, reviewer.Handle),
		notification.Event{
			Type: notification.TypeLeaveApproved,
			Data: map[string]interface{}{"request_id": request.ID, "approved_by": reviewer.Handle},
		})

	status := leave.LeaveRequestStatusApproved
	approvedBy := reviewer.Handle
	if err := r.LeaveRequestRepository.UpdateByKey(ctx, request.ID, leave.LeaveUpdate{
		Status:     &status,
		ApprovedBy: &approvedBy,
		DecidedAt:  &decidedAt,
	}); err != nil {
		r.alertWriteFailure(ctx, request.ID, "approve", err)
	}

	request.Status = status
	request.ApprovedBy = &approvedBy
	request.DecidedAt = &decidedAt
	entry.request = request
	r.finish(ctx, entry)

	slog.Info("Leave request approved", "request_id", request.ID, "approved_by", approvedBy)
	return request, nil
}

func (r *RequestService) BeginDenial(ctx context.Context, req leave.DecisionRequest) (notification.MessageRef, error) {
	reviewer, err := r.reviewer(req.Reviewer)
	if err != nil {
		return notification.MessageRef{}, err
	}
	entry, err := r.lookup(ctx, req.RequestID)
	if err != nil {
		return notification.MessageRef{}, err
	}

	entry.mu.Lock()
	decided := entry.decided
	name := entry.request.Name
	origin := req.Origin
	if origin.IsZero() {
		origin = entry.request.ReviewRef
	}
	entry.mu.Unlock()
	if decided {
		return notification.MessageRef{}, leave.ErrAlreadyDecided
	}

	ref, err := r.notifier.Prompt(ctx, origin,
		fmt.Sprintf("@%s, reply to this message with the reason for denying the leave request of %s.", reviewer.Handle, name))
	if err != nil {
		return notification.MessageRef{}, fmt.Errorf("failed to post denial prompt: %w", err)
	}

	r.promptMu.Lock()
	previous, hadPrevious := r.prompts[reviewer.Handle]
	r.prompts[reviewer.Handle] = denialPrompt{requestID: req.RequestID, ref: ref}
	r.promptMu.Unlock()

	if hadPrevious {
		r.notifier.DeleteMessage(ctx, previous.ref)
	}
	return ref, nil
}

func (r *RequestService) SubmitDenialReason(ctx context.Context, reply leave.DenialReply) (leave.LeaveRequest, bool, error) {
	handle := member.NormalizeHandle(reply.Reviewer)

	r.promptMu.Lock()
	prompt, ok := r.prompts[handle]
	r.promptMu.Unlock()
	if !ok || reply.ReplyTo.IsZero() || reply.ReplyTo != prompt.ref {
		return leave.LeaveRequest{}, false, nil
	}

	reviewer, err := r.reviewer(handle)
	if err != nil {
		return leave.LeaveRequest{}, true, err
	}

	entry, err := r.lookup(ctx, prompt.requestID)
	if err != nil {
		r.clearPrompt(ctx, handle, prompt)
		return leave.LeaveRequest{}, true, err
	}

	if validator.IsEmpty(reply.Text) {
		return leave.LeaveRequest{}, true, leave.ErrEmptyReason
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.decided {
		r.clearPrompt(ctx, handle, prompt)
		return leave.LeaveRequest{}, true, leave.ErrAlreadyDecided
	}

	request := entry.request
	decidedAt := r.now()
	reason := reply.Text

	r.notifier.Notify(ctx, request.RequesterChatID,
		fmt.Sprintf("Your leave request (reason: %s) was denied by @%s.\nDenial reason: %s", request.Reason, reviewer.Handle, reason))

	r.notifier.EditReview(ctx, request.ReviewRef,
		fmt.Sprintf("Denied the leave request of %s.\nReason: %s\nDenial reason: %s\n(by @%s)", request.Name, request.Reason, reason, reviewer.Handle),
		notification.Event{
			Type: notification.TypeLeaveDenied,
			Data: map[string]interface{}{"request_id": request.ID, "denied_by": reviewer.Handle, "denial_reason": reason},
		})

	status := leave.LeaveRequestStatusDenied
	deniedBy := reviewer.Handle
	if err := r.LeaveRequestRepository.UpdateByKey(ctx, request.ID, leave.LeaveUpdate{
		Status:       &status,
		ApprovedBy:   &deniedBy,
		DecidedAt:    &decidedAt,
		DenialReason: &reason,
	}); err != nil {
		r.alertWriteFailure(ctx, request.ID, "deny", err)
	}

	r.clearPrompt(ctx, handle, prompt)

	request.Status = status
	request.ApprovedBy = &deniedBy
	request.DecidedAt = &decidedAt
	request.DenialReason = &reason
	entry.request = request
	r.finish(ctx, entry)

	slog.Info("Leave request denied", "request_id", request.ID, "denied_by", deniedBy)
	return request, true, nil
}

// clearPrompt deletes the reviewer's prompt if it is still the open one.
func (r *RequestService) clearPrompt(ctx context.Context, reviewer string, prompt denialPrompt) {
	r.promptMu.Lock()
	if current, ok := r.prompts[reviewer]; ok && current == prompt {
		delete(r.prompts, reviewer)
	}
	r.promptMu.Unlock()

	r.notifier.DeleteMessage(ctx, prompt.ref)
}

func (r *RequestService) RestorePending(ctx context.Context) error {
	requests, err := r.LeaveRequestRepository.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("failed to list pending leave requests: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	restored := 0
	for _, req := range requests {
		if req.ReviewRef.IsZero() {
			slog.Warn("Pending leave request was never posted for review, not restored", "request_id", req.ID)
			continue
		}
		if _, exists := r.pending[req.ID]; exists {
			continue
		}
		r.pending[req.ID] = &pendingEntry{request: req}
		if cur, ok := r.pending[r.current[req.Handle]]; !ok || cur.request.SubmittedAt.Before(req.SubmittedAt) {
			r.current[req.Handle] = req.ID
		}
		restored++
	}

	slog.Info("Pending leave requests restored", "count", restored)
	return nil
}

func (r *RequestService) ListPending() []leave.LeaveRequest {
	r.mu.Lock()
	entries := make([]*pendingEntry, 0, len(r.pending))
	for _, e := range r.pending {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	out := make([]leave.LeaveRequest, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.decided {
			out = append(out, e.request)
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out
}

func (r *RequestService) List(ctx context.Context) ([]leave.LeaveRequestResponse, error) {
	requests, err := r.LeaveRequestRepository.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]leave.LeaveRequestResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, leave.ToResponse(req))
	}
	return out, nil
}
