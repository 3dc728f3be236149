package notification

import (
	"time"
)

// NotificationType tags events published on the review stream
type NotificationType string

const (
	TypeLeaveRequest      NotificationType = "leave_request"
	TypeLeaveAttachment   NotificationType = "leave_attachment"
	TypeLeaveApproved     NotificationType = "leave_approved"
	TypeLeaveDenied       NotificationType = "leave_denied"
	TypeAttendanceMissing NotificationType = "attendance_missing_clock_out"
	TypeMemberNote        NotificationType = "member_note"
	TypeOperatorAlert     NotificationType = "operator_alert"
)

// AllNotificationTypes returns all available notification types
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypeLeaveRequest,
		TypeLeaveAttachment,
		TypeLeaveApproved,
		TypeLeaveDenied,
		TypeAttendanceMissing,
		TypeMemberNote,
		TypeOperatorAlert,
	}
}

// MessageRef identifies a message posted to a chat, for later edits.
type MessageRef struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

func (r MessageRef) IsZero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// AttachmentKind distinguishes photos from documents.
type AttachmentKind string

const (
	AttachmentPhoto    AttachmentKind = "photo"
	AttachmentDocument AttachmentKind = "document"
)

// Attachment references a file held by the chat transport.
type Attachment struct {
	Kind   AttachmentKind `json:"kind"`
	FileID string         `json:"file_id"`
}

// Action is an inline button on a review prompt.
type Action struct {
	Label string
	Data  string
}

// Message is one queued direct message.
type Message struct {
	ChatID int64
	Text   string
	// Markdown selects the transport's markdown parse mode.
	Markdown bool
	// Menu attaches the member action keyboard.
	Menu bool
}

// Event is published to review stream subscribers.
type Event struct {
	ID        string
	Type      NotificationType
	Text      string
	Data      map[string]interface{}
	CreatedAt time.Time
}
