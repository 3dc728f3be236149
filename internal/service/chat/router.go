package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/chat"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/utils"
)

// MaxMessageLength is the longest text the chat transport accepts.
const MaxMessageLength = 4096

const (
	msgMissingHandle   = "Please set a Telegram @username first."
	msgNotRegistered   = "You are not registered, please contact an administrator."
	msgSupervisorOnly  = "You are not allowed to use this command."
	msgLeavePrompt     = "Please type the reason for your leave (for example: personal leave, 2025/06/10 all day).\nYou can send photos or files as attachments afterwards."
	msgLeaveBusy       = "You already have a leave request in progress."
	msgReviewDown      = "Your leave request could not be delivered to the reviewers, please contact an administrator."
	msgAttachmentAdded = "Attachment added to your leave request."
	msgNoPendingLeave  = "You have no pending leave request to attach this to."
	msgDenialSent      = "The denial reason was sent to the requester."
	msgReportTooLong   = "Too much data to display."
	msgDirectUsage     = "Usage: /msg <username> <text>"
)

type RouterImpl struct {
	directory  member.Directory
	attendance attendance.AttendanceService
	leave      leave.LeaveService
	reports    attendance.ReportService
	notifier   notification.Service
}

func NewRouter(
	directory member.Directory,
	attendanceService attendance.AttendanceService,
	leaveService leave.LeaveService,
	reportService attendance.ReportService,
	notifier notification.Service,
) chat.Router {
	return &RouterImpl{
		directory:  directory,
		attendance: attendanceService,
		leave:      leaveService,
		reports:    reportService,
		notifier:   notifier,
	}
}

// Dispatch implements chat.Router. Guard and usage failures are answered in
// the sender's chat. Decision errors are returned instead, so the transport
// can show them on the pressed button.
func (r *RouterImpl) Dispatch(ctx context.Context, event chat.Event) error {
	if start, ok := event.(chat.Start); ok {
		return r.start(ctx, start)
	}

	from := event.Sender()
	if member.NormalizeHandle(from.Handle) == "" {
		if _, ok := event.(chat.Decision); ok {
			return member.ErrMissingHandle
		}
		r.reply(ctx, from, msgMissingHandle)
		return nil
	}

	m, err := r.directory.Get(from.Handle)
	if err != nil {
		if _, ok := event.(chat.Decision); ok {
			return leave.ErrNotReviewer
		}
		// Unknown people chatting in a group must not get an answer per message
		if _, ok := event.(chat.Text); !ok {
			r.reply(ctx, from, msgNotRegistered)
		}
		return nil
	}

	switch e := event.(type) {
	case chat.ClockIn:
		r.clock(ctx, m, from, attendance.KindIn)
	case chat.ClockOut:
		r.clock(ctx, m, from, attendance.KindOut)
	case chat.RequestLeave:
		r.requestLeave(ctx, m, from)
	case chat.Text:
		r.text(ctx, m, e)
	case chat.Attachment:
		r.attachment(ctx, m, e)
	case chat.Decision:
		return r.decision(ctx, m, e)
	case chat.TodayReport:
		r.supervisorOnly(ctx, m, from, func() { r.todayReport(ctx, from, e.Target) })
	case chat.MonthReport:
		r.supervisorOnly(ctx, m, from, func() { r.monthReport(ctx, from, e.Target) })
	case chat.DirectMessage:
		r.supervisorOnly(ctx, m, from, func() { r.directMessage(ctx, m, from, e) })
	default:
		return chat.ErrUnknownEvent
	}
	return nil
}

func (r *RouterImpl) reply(ctx context.Context, to chat.Sender, text string) {
	r.notifier.Notify(ctx, to.ChatID, text)
}

func (r *RouterImpl) start(ctx context.Context, e chat.Start) error {
	from := e.Sender()
	if member.NormalizeHandle(from.Handle) == "" {
		r.reply(ctx, from, msgMissingHandle)
		return nil
	}

	m, err := r.directory.BindChat(ctx, from.Handle, from.ChatID)
	switch {
	case errors.Is(err, member.ErrNotRegistered):
		r.reply(ctx, from, fmt.Sprintf("@%s is not authorized to use this bot, please contact an administrator.", from.Handle))
		return nil
	case err != nil:
		// The binding still holds in memory; only persisting it failed
		slog.Error("Failed to save chat binding", "handle", from.Handle, "error", err)
		r.notifier.AlertOperator(ctx, fmt.Sprintf("Directory write failed for @%s: %v", from.Handle, err))
		if m.Handle == "" {
			return nil
		}
	}

	r.notifier.NotifyMenu(ctx, from.ChatID, fmt.Sprintf("Hello, %s! Please choose an action:", m.Name))
	return nil
}

func (r *RouterImpl) clock(ctx context.Context, m member.Member, from chat.Sender, kind attendance.Kind) {
	_, err := r.attendance.Request(ctx, attendance.ClockRequest{Handle: m.Handle, Kind: kind, ChatID: from.ChatID})
	if err == nil {
		return
	}

	var text string
	switch {
	case errors.Is(err, member.ErrAlreadyClockedIn):
		text = "You have already clocked in today."
	case errors.Is(err, member.ErrNotYetClockedIn):
		text = "You have not clocked in yet today."
	case errors.Is(err, member.ErrAlreadyClockedOut):
		text = "You have already clocked out today."
	case errors.Is(err, attendance.ErrHandshakeInProgress):
		text = "A location check is already in progress, please use the link you received."
	case errors.Is(err, attendance.ErrShuttingDown):
		text = "The service is restarting, please try again in a minute."
	default:
		slog.Warn("Clock request failed", "handle", m.Handle, "kind", kind, "error", err)
		text = "Could not start the location check, please try again later."
	}
	r.reply(ctx, from, text)
}

func (r *RouterImpl) requestLeave(ctx context.Context, m member.Member, from chat.Sender) {
	if err := r.leave.BeginRequest(ctx, m.Handle); err != nil {
		if errors.Is(err, leave.ErrReasonAlreadyPending) {
			r.reply(ctx, from, msgLeaveBusy)
			return
		}
		slog.Warn("Leave request could not start", "handle", m.Handle, "error", err)
		r.reply(ctx, from, msgNotRegistered)
		return
	}
	r.reply(ctx, from, msgLeavePrompt)
}

// text routes free text: a denial justification first, then a pending leave
// reason, then a note from a clocked-in member.
func (r *RouterImpl) text(ctx context.Context, m member.Member, e chat.Text) {
	from := e.Sender()

	if e.ReplyTo != nil && m.IsSupervisor() {
		_, handled, err := r.leave.SubmitDenialReason(ctx, leave.DenialReply{
			Reviewer:  m.Handle,
			ReplyTo:   *e.ReplyTo,
			Text:      e.Text,
			MessageID: e.Message.MessageID,
		})
		if handled {
			switch {
			case err == nil:
				r.notifier.Prompt(ctx, e.Message, msgDenialSent)
			case errors.Is(err, leave.ErrEmptyReason):
				r.notifier.Prompt(ctx, e.Message, "Please reply with a non-empty denial reason.")
			default:
				r.notifier.Prompt(ctx, e.Message, "Could not deny the request: "+err.Error())
			}
			return
		}
	}

	if r.leave.AwaitingReason(m.Handle) {
		req, err := r.leave.Submit(ctx, leave.SubmitRequest{Handle: m.Handle, ChatID: from.ChatID, Reason: e.Text})
		switch {
		case err == nil:
			r.reply(ctx, from, fmt.Sprintf("Your leave request was submitted.\nReason: %s\nYou can send photos or files as attachments.", req.Reason))
		case errors.Is(err, leave.ErrEmptyReason):
			r.reply(ctx, from, "The leave reason must not be empty, please type it again.")
		case errors.Is(err, leave.ErrReviewUnavailable):
			r.reply(ctx, from, msgReviewDown)
		default:
			slog.Warn("Leave submission failed", "handle", m.Handle, "error", err)
			r.reply(ctx, from, msgReviewDown)
		}
		return
	}

	if m.Marks.Current() == member.StateIn && !e.Message.IsZero() {
		r.notifier.ForwardNote(ctx, e.Message, fmt.Sprintf("Note from %s", m.Name), notification.Event{
			Type: notification.TypeMemberNote,
			Data: map[string]interface{}{"handle": m.Handle},
		})
	}
}

func (r *RouterImpl) attachment(ctx context.Context, m member.Member, e chat.Attachment) {
	from := e.Sender()
	_, err := r.leave.AddAttachment(ctx, m.Handle, e.Attachment)
	switch {
	case err == nil:
		r.reply(ctx, from, msgAttachmentAdded)
	case errors.Is(err, leave.ErrNoPendingLeave):
		r.reply(ctx, from, msgNoPendingLeave)
	default:
		slog.Warn("Attachment not added", "handle", m.Handle, "error", err)
		r.reply(ctx, from, msgNoPendingLeave)
	}
}

func (r *RouterImpl) decision(ctx context.Context, m member.Member, e chat.Decision) error {
	req := leave.DecisionRequest{RequestID: e.RequestID, Reviewer: m.Handle, Origin: e.Origin}
	if e.Approve {
		_, err := r.leave.Approve(ctx, req)
		return err
	}
	_, err := r.leave.BeginDenial(ctx, req)
	return err
}

func (r *RouterImpl) supervisorOnly(ctx context.Context, m member.Member, from chat.Sender, fn func()) {
	if !m.IsSupervisor() {
		r.reply(ctx, from, msgSupervisorOnly)
		return
	}
	fn()
}

func (r *RouterImpl) todayReport(ctx context.Context, from chat.Sender, target string) {
	report, err := r.reports.Today(ctx, target)
	if err != nil {
		slog.Warn("Today report failed", "error", err)
		r.reply(ctx, from, "Could not build the report, please try again later.")
		return
	}
	r.notifier.NotifyMarkdown(ctx, from.ChatID, FormatDayReport(report, member.NormalizeHandle(target)))
}

func (r *RouterImpl) monthReport(ctx context.Context, from chat.Sender, target string) {
	report, err := r.reports.Month(ctx, "", target)
	if err != nil {
		slog.Warn("Month report failed", "error", err)
		r.reply(ctx, from, "Could not build the report, please try again later.")
		return
	}

	text := FormatMonthReport(report, member.NormalizeHandle(target))
	if utf8.RuneCountInString(text) > MaxMessageLength {
		r.reply(ctx, from, msgReportTooLong)
		return
	}
	r.notifier.NotifyMarkdown(ctx, from.ChatID, text)
}

func (r *RouterImpl) directMessage(ctx context.Context, sender member.Member, from chat.Sender, e chat.DirectMessage) {
	target := member.NormalizeHandle(e.Target)
	if target == "" || strings.TrimSpace(e.Text) == "" {
		r.reply(ctx, from, msgDirectUsage)
		return
	}

	recipient, err := r.directory.Get(target)
	if err != nil || recipient.ChatID == nil {
		r.notifier.NotifyMarkdown(ctx, from.ChatID,
			fmt.Sprintf("Cannot find member @%s or they have not started the bot yet\\.", utils.EscapeMarkdown(target)))
		return
	}

	r.notifier.NotifyMarkdown(ctx, *recipient.ChatID,
		fmt.Sprintf("📨 Message from *%s*:\n\n%s", utils.EscapeMarkdown(sender.Name), utils.EscapeMarkdown(e.Text)))
	r.notifier.NotifyMarkdown(ctx, from.ChatID,
		fmt.Sprintf("Message sent to @%s\\.", utils.EscapeMarkdown(recipient.Handle)))
}
