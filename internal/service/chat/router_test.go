package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/chat"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/sink"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/sse"
	"github.com/cmlabs-hris/attendance-bot/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/attendance-bot/internal/service/attendance"
	correlationService "github.com/cmlabs-hris/attendance-bot/internal/service/correlation"
	"github.com/cmlabs-hris/attendance-bot/internal/service/directory"
	leaveService "github.com/cmlabs-hris/attendance-bot/internal/service/leave"
	notificationService "github.com/cmlabs-hris/attendance-bot/internal/service/notification"
	reportService "github.com/cmlabs-hris/attendance-bot/internal/service/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	daveChat   int64 = 3001
	eveChat    int64 = 3002
	henryChat  int64 = 3003
	reviewChat int64 = -100
)

var (
	dave = chat.Sender{Handle: "Dave", ChatID: daveChat}
	eve  = chat.Sender{Handle: "eve", ChatID: eveChat}
)

type harness struct {
	router     chat.Router
	directory  member.Directory
	members    member.MemberRepository
	records    attendance.AttendanceRepository
	leave      leave.LeaveService
	attendance attendance.AttendanceService
	sink       *sink.MemorySink
	loc        *time.Location
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	loc, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	eveID := eveChat
	members := memory.NewMemberRepository(
		member.Member{Handle: "dave", Name: "Dave", Latitude: 25.03, Longitude: 121.56},
		member.Member{Handle: "eve", Name: "Eve", Role: member.RoleSupervisor, ChatID: &eveID},
		member.Member{Handle: "henry", Name: "Henry"},
	)
	dir := directory.NewDirectory(members)
	require.NoError(t, dir.Load(context.Background()))

	memSink := sink.NewMemorySink()
	notifier := notificationService.NewNotificationService(memSink, sse.NewHub(), notificationService.Config{ReviewChatID: reviewChat})
	t.Cleanup(notifier.Stop)

	records := memory.NewAttendanceRepository()
	attendanceSvc := attendanceService.NewAttendanceService(dir, correlationService.NewRegistry(), records, notifier, nil, nil, attendanceService.Config{
		WorkHours:        attendance.WorkHours{StartHour: 9, StartMinute: 30, EndHour: 17, EndMinute: 30},
		Location:         loc,
		PublicBaseURL:    "https://bot.example.test",
		HandshakeTimeout: 200 * time.Millisecond,
	})
	t.Cleanup(attendanceSvc.Wait)

	leaveSvc := leaveService.NewRequestService(dir, memory.NewLeaveRequestRepository(), notifier)
	reports := reportService.NewReportService(records, loc)

	return &harness{
		router:     NewRouter(dir, attendanceSvc, leaveSvc, reports, notifier),
		directory:  dir,
		members:    members,
		records:    records,
		leave:      leaveSvc,
		attendance: attendanceSvc,
		sink:       memSink,
		loc:        loc,
	}
}

func (h *harness) dispatch(t *testing.T, event chat.Event) {
	t.Helper()
	require.NoError(t, h.router.Dispatch(context.Background(), event))
}

func (h *harness) eventually(t *testing.T, chatID int64, substr string) {
	t.Helper()
	assert.Eventually(t, func() bool { return h.sink.Contains(chatID, substr) }, time.Second, 5*time.Millisecond,
		"chat %d never received %q; got %v", chatID, substr, h.sink.Texts(chatID))
}

func (h *harness) start(t *testing.T, from chat.Sender) {
	t.Helper()
	h.dispatch(t, chat.NewStart(from))
	h.eventually(t, from.ChatID, "Please choose an action")
}

func (h *harness) clockIn(t *testing.T, handle string) {
	t.Helper()
	_, err := h.directory.Update(handle, func(m *member.Member) error {
		return m.Marks.MarkIn(time.Now())
	})
	require.NoError(t, err)
}

func TestRouter_StartBindsChat(t *testing.T) {
	h := newHarness(t)

	h.dispatch(t, chat.NewStart(dave))
	h.eventually(t, daveChat, "Hello, Dave!")

	msgs := h.sink.Messages(daveChat)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Menu)

	m, err := h.directory.Get("dave")
	require.NoError(t, err)
	require.NotNil(t, m.ChatID)
	assert.Equal(t, daveChat, *m.ChatID)

	stored, err := h.members.List(context.Background())
	require.NoError(t, err)
	for _, s := range stored {
		if s.Handle == "dave" {
			require.NotNil(t, s.ChatID)
			assert.Equal(t, daveChat, *s.ChatID)
		}
	}
}

func TestRouter_StartRejectsStrangers(t *testing.T) {
	h := newHarness(t)

	h.dispatch(t, chat.NewStart(chat.Sender{Handle: "mallory", ChatID: 9999}))
	h.eventually(t, 9999, "@mallory is not authorized")

	h.dispatch(t, chat.NewStart(chat.Sender{ChatID: 9998}))
	h.eventually(t, 9998, msgMissingHandle)

	h.dispatch(t, chat.NewClockIn(chat.Sender{Handle: "mallory", ChatID: 9999}))
	h.eventually(t, 9999, msgNotRegistered)
}

func TestRouter_ClockInSendsLink(t *testing.T) {
	h := newHarness(t)
	h.start(t, dave)

	h.dispatch(t, chat.NewClockIn(dave))
	h.eventually(t, daveChat, "https://bot.example.test/gps/")

	// The handshake is still open
	h.dispatch(t, chat.NewClockIn(dave))
	h.eventually(t, daveChat, "already in progress")

	h.eventually(t, daveChat, "timed out")
}

func TestRouter_ClockGuards(t *testing.T) {
	h := newHarness(t)
	h.start(t, dave)

	h.dispatch(t, chat.NewClockOut(dave))
	h.eventually(t, daveChat, "You have not clocked in yet today.")

	h.clockIn(t, "dave")
	h.dispatch(t, chat.NewClockIn(dave))
	h.eventually(t, daveChat, "You have already clocked in today.")
}

func TestRouter_LeaveDialog(t *testing.T) {
	h := newHarness(t)
	h.start(t, dave)

	h.dispatch(t, chat.NewRequestLeave(dave))
	h.eventually(t, daveChat, "Please type the reason for your leave")
	assert.True(t, h.leave.AwaitingReason("dave"))

	h.dispatch(t, chat.NewRequestLeave(dave))
	h.eventually(t, daveChat, msgLeaveBusy)

	h.dispatch(t, chat.NewText(dave, "family event", notification.MessageRef{ChatID: daveChat, MessageID: 50}, nil))
	h.eventually(t, daveChat, "Your leave request was submitted.")
	assert.True(t, h.sink.Contains(reviewChat, "family event"))
	assert.False(t, h.leave.AwaitingReason("dave"))

	h.dispatch(t, chat.NewAttachment(dave, notification.Attachment{Kind: notification.AttachmentPhoto, FileID: "p1"},
		notification.MessageRef{ChatID: daveChat, MessageID: 51}))
	h.eventually(t, daveChat, msgAttachmentAdded)
	assert.True(t, h.sink.Contains(reviewChat, "reason: family event"))
}

func TestRouter_AttachmentWithoutRequest(t *testing.T) {
	h := newHarness(t)
	h.start(t, dave)

	h.dispatch(t, chat.NewAttachment(dave, notification.Attachment{Kind: notification.AttachmentDocument, FileID: "d1"}, notification.MessageRef{}))
	h.eventually(t, daveChat, msgNoPendingLeave)
}

func submitLeave(t *testing.T, h *harness, reason string) leave.LeaveRequest {
	t.Helper()
	h.dispatch(t, chat.NewRequestLeave(dave))
	h.dispatch(t, chat.NewText(dave, reason, notification.MessageRef{ChatID: daveChat, MessageID: 60}, nil))

	pending := h.leave.ListPending()
	require.Len(t, pending, 1)
	return pending[0]
}

func TestRouter_ApproveDecision(t *testing.T) {
	h := newHarness(t)
	h.start(t, dave)
	req := submitLeave(t, h, "dentist")

	err := h.router.Dispatch(context.Background(), chat.NewDecision(dave, true, req.ID, req.ReviewRef))
	assert.ErrorIs(t, err, leave.ErrNotReviewer)

	h.dispatch(t, chat.NewDecision(eve, true, req.ID, req.ReviewRef))
	h.eventually(t, daveChat, "approved by @eve")

	err = h.router.Dispatch(context.Background(), chat.NewDecision(eve, false, req.ID, req.ReviewRef))
	assert.ErrorIs(t, err, leave.ErrAlreadyDecided)

	err = h.router.Dispatch(context.Background(), chat.NewDecision(chat.Sender{Handle: "mallory"}, true, req.ID, req.ReviewRef))
	assert.ErrorIs(t, err, leave.ErrNotReviewer)
}

func TestRouter_DenyDecision(t *testing.T) {
	h := newHarness(t)
	h.start(t, dave)
	req := submitLeave(t, h, "dentist")

	h.dispatch(t, chat.NewDecision(eve, false, req.ID, req.ReviewRef))

	var prompt notification.MessageRef
	for _, m := range h.sink.Messages(reviewChat) {
		if strings.Contains(m.Text, "reason for denying") {
			prompt = m.Ref
		}
	}
	require.False(t, prompt.IsZero())

	reply := notification.MessageRef{ChatID: reviewChat, MessageID: 900}
	h.dispatch(t, chat.NewText(eve, "missing documentation", reply, &prompt))

	h.eventually(t, daveChat, "Denial reason: missing documentation")
	assert.True(t, h.sink.Contains(reviewChat, msgDenialSent))
	assert.Empty(t, h.leave.ListPending())
}

func TestRouter_NotesForwardedWhileClockedIn(t *testing.T) {
	h := newHarness(t)
	h.start(t, dave)
	note := notification.MessageRef{ChatID: daveChat, MessageID: 70}

	h.dispatch(t, chat.NewText(dave, "before work", note, nil))
	assert.Empty(t, h.sink.Messages(reviewChat))

	h.clockIn(t, "dave")
	h.dispatch(t, chat.NewText(dave, "fixed the printer", note, nil))
	h.eventually(t, reviewChat, "Note from Dave")

	var forwarded bool
	for _, m := range h.sink.Messages(reviewChat) {
		if m.Forwarded != nil && *m.Forwarded == note {
			forwarded = true
		}
	}
	assert.True(t, forwarded)

	_, err := h.directory.Update("dave", func(m *member.Member) error {
		return m.Marks.MarkOut(time.Now())
	})
	require.NoError(t, err)
	before := len(h.sink.Messages(reviewChat))
	h.dispatch(t, chat.NewText(dave, "after work", note, nil))
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, h.sink.Messages(reviewChat), before)
}

func TestRouter_SupervisorOnlyCommands(t *testing.T) {
	h := newHarness(t)
	h.start(t, dave)

	h.dispatch(t, chat.NewTodayReport(dave, ""))
	h.dispatch(t, chat.NewMonthReport(dave, ""))
	h.dispatch(t, chat.NewDirectMessage(dave, "eve", "hi"))

	assert.Eventually(t, func() bool {
		n := 0
		for _, text := range h.sink.Texts(daveChat) {
			if text == msgSupervisorOnly {
				n++
			}
		}
		return n == 3
	}, time.Second, 5*time.Millisecond)
	assert.False(t, h.sink.Contains(eveChat, "hi"))
}

func TestRouter_TodayReport(t *testing.T) {
	h := newHarness(t)
	now := time.Now().In(h.loc)
	_, err := h.records.Append(context.Background(), attendance.Record{
		Handle: "dave", Name: "Dave", Date: now.Format("2006-01-02"), Kind: attendance.KindIn,
		Timestamp: time.Date(now.Year(), now.Month(), now.Day(), 9, 12, 0, 0, h.loc),
	})
	require.NoError(t, err)

	h.dispatch(t, chat.NewTodayReport(eve, ""))
	h.eventually(t, eveChat, "`@dave            | 09:12:00 | —       `")

	msgs := h.sink.Messages(eveChat)
	require.NotEmpty(t, msgs)
	assert.True(t, msgs[len(msgs)-1].Markdown)

	h.dispatch(t, chat.NewTodayReport(eve, "henry"))
	h.eventually(t, eveChat, "No attendance records for @henry")
}

func TestRouter_MonthReport(t *testing.T) {
	h := newHarness(t)

	h.dispatch(t, chat.NewMonthReport(eve, ""))
	h.eventually(t, eveChat, "No attendance records in")
}

func TestRouter_DirectMessage(t *testing.T) {
	h := newHarness(t)
	h.start(t, dave)

	h.dispatch(t, chat.NewDirectMessage(eve, "@dave", "please call me (urgent)."))
	h.eventually(t, daveChat, "📨 Message from *Eve*:\n\nplease call me \\(urgent\\)\\.")
	h.eventually(t, eveChat, "Message sent to @dave\\.")

	h.dispatch(t, chat.NewDirectMessage(eve, "henry", "hello"))
	h.eventually(t, eveChat, "Cannot find member @henry")

	h.dispatch(t, chat.NewDirectMessage(eve, "", ""))
	h.eventually(t, eveChat, msgDirectUsage)
}

func TestFormatMonthReport(t *testing.T) {
	report := attendance.MonthReport{
		Month: "2024-03",
		Members: []attendance.MonthMember{{
			Handle: "dave",
			Name:   "Dave",
			Days: []attendance.MonthDay{
				{Day: "04", ClockIn: "09:01:00", ClockOut: "17:45:00"},
				{Day: "05", ClockIn: "09:40:10", ClockOut: "—"},
			},
		}},
	}

	got := FormatMonthReport(report, "dave")
	want := strings.Join([]string{
		"📅 *2024\\-03 monthly attendance* for `@dave`",
		"\n── @dave \\(Dave\\) ──",
		"04: in 09:01:00, out 17:45:00",
		"05: in 09:40:10, out —",
	}, "\n")
	assert.Equal(t, want, got)
}
