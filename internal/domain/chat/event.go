package chat

import (
	"context"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
)

// Sender identifies who produced an inbound chat event.
type Sender struct {
	Handle string
	ChatID int64
}

// Event is the closed set of inbound chat events. The transport adapter is
// the only place that parses free text into these.
type Event interface {
	Sender() Sender
	isEvent()
}

type base struct {
	From Sender
}

func (b base) Sender() Sender { return b.From }
func (base) isEvent()         {}

// Start is the first contact of a member (binds their chat identity).
type Start struct{ base }

type ClockIn struct{ base }

type ClockOut struct{ base }

type RequestLeave struct{ base }

// Text is a plain text message. ReplyTo is set when it answers another message.
type Text struct {
	base
	Text    string
	Message notification.MessageRef
	ReplyTo *notification.MessageRef
}

type Attachment struct {
	base
	Attachment notification.Attachment
	Message    notification.MessageRef
}

// Decision is a reviewer pressing approve or deny on a review prompt.
type Decision struct {
	base
	Approve   bool
	RequestID string
	Origin    notification.MessageRef
}

type TodayReport struct {
	base
	Target string
}

type MonthReport struct {
	base
	Target string
}

type DirectMessage struct {
	base
	Target string
	Text   string
}

func NewStart(from Sender) Start               { return Start{base{from}} }
func NewClockIn(from Sender) ClockIn           { return ClockIn{base{from}} }
func NewClockOut(from Sender) ClockOut         { return ClockOut{base{from}} }
func NewRequestLeave(from Sender) RequestLeave { return RequestLeave{base{from}} }

func NewText(from Sender, text string, msg notification.MessageRef, replyTo *notification.MessageRef) Text {
	return Text{base: base{from}, Text: text, Message: msg, ReplyTo: replyTo}
}

func NewAttachment(from Sender, att notification.Attachment, msg notification.MessageRef) Attachment {
	return Attachment{base: base{from}, Attachment: att, Message: msg}
}

func NewDecision(from Sender, approve bool, requestID string, origin notification.MessageRef) Decision {
	return Decision{base: base{from}, Approve: approve, RequestID: requestID, Origin: origin}
}

func NewTodayReport(from Sender, target string) TodayReport {
	return TodayReport{base: base{from}, Target: target}
}

func NewMonthReport(from Sender, target string) MonthReport {
	return MonthReport{base: base{from}, Target: target}
}

func NewDirectMessage(from Sender, target, text string) DirectMessage {
	return DirectMessage{base: base{from}, Target: target, Text: text}
}

// Router dispatches chat events to the workflows and answers the sender.
type Router interface {
	Dispatch(ctx context.Context, event Event) error
}
