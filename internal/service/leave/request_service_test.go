package leave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/sink"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-bot/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-bot/internal/service/directory"
	notificationService "github.com/cmlabs-hris/attendance-bot/internal/service/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	daveChat     int64 = 2001
	eveChat      int64 = 2002
	frankChat    int64 = 2003
	graceChat    int64 = 2004
	reviewChat   int64 = -100
	operatorChat int64 = -200
)

type failingUpdateRepo struct {
	leave.LeaveRequestRepository
}

func (failingUpdateRepo) UpdateByKey(ctx context.Context, id string, update leave.LeaveUpdate) error {
	return errors.New("connection reset")
}

type harness struct {
	svc  *RequestService
	repo leave.LeaveRequestRepository
	sink *sink.MemorySink
	dir  member.Directory
	hub  *sse.Hub
}

func newHarness(t *testing.T, repo leave.LeaveRequestRepository) *harness {
	t.Helper()

	if repo == nil {
		repo = memory.NewLeaveRequestRepository()
	}

	dave, eve, frank, grace := daveChat, eveChat, frankChat, graceChat
	members := memory.NewMemberRepository(
		member.Member{Handle: "dave", Name: "Dave", ChatID: &dave},
		member.Member{Handle: "eve", Name: "Eve", Role: member.RoleSupervisor, ChatID: &eve},
		member.Member{Handle: "frank", Name: "Frank", ChatID: &frank},
		member.Member{Handle: "grace", Name: "Grace", Role: member.RoleSupervisor, ChatID: &grace},
	)
	dir := directory.NewDirectory(members)
	require.NoError(t, dir.Load(context.Background()))

	memSink := sink.NewMemorySink()
	hub := sse.NewHub()
	notifier := notificationService.NewNotificationService(memSink, hub, notificationService.Config{
		ReviewChatID:   reviewChat,
		OperatorChatID: operatorChat,
	})
	t.Cleanup(notifier.Stop)

	svc := NewRequestService(dir, repo, notifier).(*RequestService)
	svc.now = func() time.Time { return time.Unix(1709600000, 0) }

	return &harness{svc: svc, repo: repo, sink: memSink, dir: dir, hub: hub}
}

func (h *harness) eventually(t *testing.T, chatID int64, substr string) {
	t.Helper()
	assert.Eventually(t, func() bool { return h.sink.Contains(chatID, substr) }, time.Second, 5*time.Millisecond,
		"expected a message containing %q in chat %d, got %v", substr, chatID, h.sink.Texts(chatID))
}

func (h *harness) submit(t *testing.T, handle string, chatID int64, reason string) leave.LeaveRequest {
	t.Helper()
	require.NoError(t, h.svc.BeginRequest(context.Background(), handle))
	req, err := h.svc.Submit(context.Background(), leave.SubmitRequest{Handle: handle, ChatID: chatID, Reason: reason})
	require.NoError(t, err)
	return req
}

func TestSubmit(t *testing.T) {
	h := newHarness(t, nil)

	req := h.submit(t, "dave", daveChat, "dentist")

	assert.Equal(t, "leave_dave_1709600000", req.ID)
	assert.Equal(t, leave.LeaveRequestStatusPending, req.Status)
	assert.False(t, req.ReviewRef.IsZero())
	assert.False(t, h.svc.AwaitingReason("dave"))

	review := h.sink.Messages(reviewChat)
	require.Len(t, review, 1)
	assert.Contains(t, review[0].Text, "dentist")
	assert.Equal(t, []notification.Action{
		{Label: "Approve", Data: "approve_leave_dave_1709600000"},
		{Label: "Deny", Data: "deny_leave_dave_1709600000"},
	}, review[0].Actions)

	stored, err := h.repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, review[0].Ref, stored.ReviewRef)

	pending := h.svc.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)
}

func TestSubmit_IDCollisionGetsSuffix(t *testing.T) {
	h := newHarness(t, nil)

	first := h.submit(t, "dave", daveChat, "dentist")
	second := h.submit(t, "dave", daveChat, "moving day")
	third := h.submit(t, "dave", daveChat, "wedding")

	assert.Equal(t, "leave_dave_1709600000", first.ID)
	assert.Equal(t, "leave_dave_1709600000_2", second.ID)
	assert.Equal(t, "leave_dave_1709600000_3", third.ID)
}

func TestSubmit_EmptyReason(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.Submit(context.Background(), leave.SubmitRequest{Handle: "dave", ChatID: daveChat, Reason: "   "})
	assert.ErrorIs(t, err, leave.ErrEmptyReason)
	assert.Empty(t, h.sink.Messages(reviewChat))
}

func TestSubmit_ReviewUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.sink.FailChat(reviewChat, errors.New("bot was kicked"))

	require.NoError(t, h.svc.BeginRequest(context.Background(), "dave"))
	_, err := h.svc.Submit(context.Background(), leave.SubmitRequest{Handle: "dave", ChatID: daveChat, Reason: "dentist"})
	assert.ErrorIs(t, err, leave.ErrReviewUnavailable)
	assert.Empty(t, h.svc.ListPending())

	// The attempt stays in the log for audit
	all, err := h.repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].ReviewRef.IsZero())

	_, err = h.svc.AddAttachment(context.Background(), "dave", notification.Attachment{Kind: notification.AttachmentPhoto, FileID: "f1"})
	assert.ErrorIs(t, err, leave.ErrNoPendingLeave)
}

func TestBeginRequest(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.svc.BeginRequest(context.Background(), "@Dave"))
	assert.True(t, h.svc.AwaitingReason("dave"))
	assert.ErrorIs(t, h.svc.BeginRequest(context.Background(), "dave"), leave.ErrReasonAlreadyPending)

	h.svc.CancelRequest("DAVE")
	assert.False(t, h.svc.AwaitingReason("dave"))

	assert.ErrorIs(t, h.svc.BeginRequest(context.Background(), "mallory"), member.ErrNotRegistered)
}

func TestApprove(t *testing.T) {
	h := newHarness(t, nil)
	req := h.submit(t, "dave", daveChat, "dentist")

	decided, err := h.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "eve", Origin: req.ReviewRef})
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusApproved, decided.Status)
	require.NotNil(t, decided.ApprovedBy)
	assert.Equal(t, "eve", *decided.ApprovedBy)

	h.eventually(t, daveChat, "approved by @eve")

	edited, ok := h.sink.EditedText(req.ReviewRef)
	require.True(t, ok)
	assert.Contains(t, edited, "Approved")

	stored, err := h.repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusApproved, stored.Status)
	require.NotNil(t, stored.DecidedAt)
	assert.Empty(t, h.svc.ListPending())

	_, err = h.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "grace"})
	assert.ErrorIs(t, err, leave.ErrAlreadyDecided)
	_, err = h.svc.BeginDenial(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "grace"})
	assert.ErrorIs(t, err, leave.ErrAlreadyDecided)
}

func TestApprove_Errors(t *testing.T) {
	h := newHarness(t, nil)
	req := h.submit(t, "dave", daveChat, "dentist")

	_, err := h.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "frank"})
	assert.ErrorIs(t, err, leave.ErrNotReviewer)

	_, err = h.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "mallory"})
	assert.ErrorIs(t, err, leave.ErrNotReviewer)

	_, err = h.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: "leave_nobody_1", Reviewer: "eve"})
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)

	_, err = h.svc.BeginDenial(context.Background(), leave.DecisionRequest{RequestID: "leave_nobody_1", Reviewer: "eve"})
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)

	assert.Len(t, h.svc.ListPending(), 1)
}

func TestApprove_ConcurrentDecisionsExactlyOnce(t *testing.T) {
	h := newHarness(t, nil)
	req := h.submit(t, "dave", daveChat, "dentist")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		decided int
	)
	for _, reviewer := range []string{"eve", "grace", "eve", "grace"} {
		wg.Add(1)
		go func(reviewer string) {
			defer wg.Done()
			_, err := h.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: reviewer})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, leave.ErrAlreadyDecided):
				decided++
			}
		}(reviewer)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	assert.Equal(t, 3, decided)
}

func TestDenial_TwoPhase(t *testing.T) {
	h := newHarness(t, nil)
	req := h.submit(t, "dave", daveChat, "dentist")

	prompt, err := h.svc.BeginDenial(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "eve", Origin: req.ReviewRef})
	require.NoError(t, err)
	assert.True(t, h.sink.Contains(reviewChat, "reason for denying the leave request of Dave"))

	// Not a reply to the prompt: ignored, still pending
	_, handled, err := h.svc.SubmitDenialReason(context.Background(), leave.DenialReply{Reviewer: "eve", Text: "missing documentation"})
	require.NoError(t, err)
	assert.False(t, handled)

	// Another reviewer answering eve's prompt: ignored
	_, handled, err = h.svc.SubmitDenialReason(context.Background(), leave.DenialReply{Reviewer: "grace", ReplyTo: prompt, Text: "no"})
	require.NoError(t, err)
	assert.False(t, handled)
	assert.Len(t, h.svc.ListPending(), 1)

	denied, handled, err := h.svc.SubmitDenialReason(context.Background(), leave.DenialReply{Reviewer: "eve", ReplyTo: prompt, Text: "missing documentation"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, leave.LeaveRequestStatusDenied, denied.Status)
	require.NotNil(t, denied.DenialReason)
	assert.Equal(t, "missing documentation", *denied.DenialReason)

	h.eventually(t, daveChat, "missing documentation")

	edited, ok := h.sink.EditedText(req.ReviewRef)
	require.True(t, ok)
	assert.Contains(t, edited, "Denied")
	assert.Contains(t, edited, "missing documentation")
	assert.True(t, h.sink.Deleted(prompt))

	stored, err := h.repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusDenied, stored.Status)
	require.NotNil(t, stored.DenialReason)
	assert.Equal(t, "missing documentation", *stored.DenialReason)
	assert.Empty(t, h.svc.ListPending())

	// The marker is gone: a second reply to the same prompt is plain text
	_, handled, err = h.svc.SubmitDenialReason(context.Background(), leave.DenialReply{Reviewer: "eve", ReplyTo: prompt, Text: "again"})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestDenial_EmptyReasonKeepsPrompt(t *testing.T) {
	h := newHarness(t, nil)
	req := h.submit(t, "dave", daveChat, "dentist")

	prompt, err := h.svc.BeginDenial(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "eve", Origin: req.ReviewRef})
	require.NoError(t, err)

	_, handled, err := h.svc.SubmitDenialReason(context.Background(), leave.DenialReply{Reviewer: "eve", ReplyTo: prompt, Text: " "})
	assert.True(t, handled)
	assert.ErrorIs(t, err, leave.ErrEmptyReason)
	assert.False(t, h.sink.Deleted(prompt))
	assert.Len(t, h.svc.ListPending(), 1)
}

func TestDenial_NewPromptReplacesPrevious(t *testing.T) {
	h := newHarness(t, nil)
	first := h.submit(t, "dave", daveChat, "dentist")
	second := h.submit(t, "frank", frankChat, "family visit")

	oldPrompt, err := h.svc.BeginDenial(context.Background(), leave.DecisionRequest{RequestID: first.ID, Reviewer: "eve", Origin: first.ReviewRef})
	require.NoError(t, err)
	newPrompt, err := h.svc.BeginDenial(context.Background(), leave.DecisionRequest{RequestID: second.ID, Reviewer: "eve", Origin: second.ReviewRef})
	require.NoError(t, err)

	assert.True(t, h.sink.Deleted(oldPrompt))

	_, handled, err := h.svc.SubmitDenialReason(context.Background(), leave.DenialReply{Reviewer: "eve", ReplyTo: oldPrompt, Text: "late"})
	require.NoError(t, err)
	assert.False(t, handled)

	denied, handled, err := h.svc.SubmitDenialReason(context.Background(), leave.DenialReply{Reviewer: "eve", ReplyTo: newPrompt, Text: "short staffed"})
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, second.ID, denied.ID)

	pending := h.svc.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)
}

func TestDenial_ApprovalClosesOtherReviewersPrompts(t *testing.T) {
	h := newHarness(t, nil)
	req := h.submit(t, "dave", daveChat, "dentist")

	prompt, err := h.svc.BeginDenial(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "eve", Origin: req.ReviewRef})
	require.NoError(t, err)

	_, err = h.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "grace"})
	require.NoError(t, err)
	assert.True(t, h.sink.Deleted(prompt))

	_, handled, err := h.svc.SubmitDenialReason(context.Background(), leave.DenialReply{Reviewer: "eve", ReplyTo: prompt, Text: "too late"})
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestAddAttachment(t *testing.T) {
	h := newHarness(t, nil)
	req := h.submit(t, "dave", daveChat, "medical appointment at the central clinic")

	photo := notification.Attachment{Kind: notification.AttachmentPhoto, FileID: "photo-1"}
	doc := notification.Attachment{Kind: notification.AttachmentDocument, FileID: "doc-1"}

	_, err := h.svc.AddAttachment(context.Background(), "dave", photo)
	require.NoError(t, err)
	updated, err := h.svc.AddAttachment(context.Background(), "dave", doc)
	require.NoError(t, err)
	assert.Equal(t, []notification.Attachment{photo, doc}, updated.Attachments)

	stored, err := h.repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, []notification.Attachment{photo, doc}, stored.Attachments)

	relayed := h.sink.Messages(reviewChat)
	require.Len(t, relayed, 3)
	require.NotNil(t, relayed[1].Attachment)
	assert.Equal(t, photo, *relayed[1].Attachment)
	assert.Equal(t, "Attachment for the leave request of Dave (reason: medical appointment at the cen...)", relayed[1].Text)

	_, err = h.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "eve"})
	require.NoError(t, err)

	_, err = h.svc.AddAttachment(context.Background(), "dave", photo)
	assert.ErrorIs(t, err, leave.ErrNoPendingLeave)
}

func TestAddAttachment_WithoutRequest(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.AddAttachment(context.Background(), "dave", notification.Attachment{Kind: notification.AttachmentPhoto, FileID: "x"})
	assert.ErrorIs(t, err, leave.ErrNoPendingLeave)
}

func TestDecision_WriteFailureAlertsOperator(t *testing.T) {
	h := newHarness(t, failingUpdateRepo{memory.NewLeaveRequestRepository()})
	req := h.submit(t, "dave", daveChat, "dentist")

	_, err := h.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "eve"})
	require.NoError(t, err)

	h.eventually(t, daveChat, "approved")
	h.eventually(t, operatorChat, "Leave log write failed")
	assert.False(t, h.sink.Contains(daveChat, "write failed"))
}

func TestRestorePending(t *testing.T) {
	repo := memory.NewLeaveRequestRepository()
	first := newHarness(t, repo)
	req := first.submit(t, "dave", daveChat, "dentist")
	decided := first.submit(t, "frank", frankChat, "errand")
	_, err := first.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: decided.ID, Reviewer: "eve"})
	require.NoError(t, err)

	// A fresh process over the same log
	second := newHarness(t, repo)
	require.NoError(t, second.svc.RestorePending(context.Background()))

	pending := second.svc.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)
	assert.Equal(t, req.ReviewRef, pending[0].ReviewRef)

	_, err = second.svc.AddAttachment(context.Background(), "dave", notification.Attachment{Kind: notification.AttachmentDocument, FileID: "d"})
	require.NoError(t, err)

	_, err = second.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: decided.ID, Reviewer: "eve"})
	assert.ErrorIs(t, err, leave.ErrAlreadyDecided)

	_, err = second.svc.Approve(context.Background(), leave.DecisionRequest{RequestID: req.ID, Reviewer: "grace"})
	require.NoError(t, err)
	second.eventually(t, daveChat, "approved by @grace")
}

func TestList(t *testing.T) {
	h := newHarness(t, nil)
	h.submit(t, "dave", daveChat, "dentist")

	list, err := h.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "dave", list[0].Handle)
	assert.Equal(t, "pending", list[0].Status)
	assert.NotNil(t, list[0].Attachments)
}

func TestReviewEventsPublished(t *testing.T) {
	h := newHarness(t, nil)
	events, cleanup := h.hub.Subscribe("dashboard")
	defer cleanup()

	h.submit(t, "dave", daveChat, "dentist")

	select {
	case ev := <-events:
		assert.Equal(t, string(notification.TypeLeaveRequest), ev.Event)
	case <-time.After(time.Second):
		t.Fatal("no review event published")
	}
}
