package telegram

import (
	"strings"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/chat"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func sender(user *tgbotapi.User, chatID int64) chat.Sender {
	s := chat.Sender{ChatID: chatID}
	if user != nil {
		s.Handle = user.UserName
	}
	return s
}

func ref(msg *tgbotapi.Message) notification.MessageRef {
	if msg == nil || msg.Chat == nil {
		return notification.MessageRef{}
	}
	return notification.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
}

// Translate turns an update into a chat event. ok is false for updates the
// bot does not act on.
func Translate(update tgbotapi.Update) (event chat.Event, ok bool) {
	if q := update.CallbackQuery; q != nil {
		approve, id, valid := leave.ParseCallback(q.Data)
		if !valid {
			return nil, false
		}
		var chatID int64
		if q.Message != nil && q.Message.Chat != nil {
			chatID = q.Message.Chat.ID
		}
		return chat.NewDecision(sender(q.From, chatID), approve, id, ref(q.Message)), true
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil, false
	}
	from := sender(msg.From, msg.Chat.ID)

	if msg.IsCommand() {
		return translateCommand(msg, from)
	}

	switch {
	case len(msg.Photo) > 0:
		// Sizes are ascending; relay the largest
		photo := msg.Photo[len(msg.Photo)-1]
		return chat.NewAttachment(from, notification.Attachment{Kind: notification.AttachmentPhoto, FileID: photo.FileID}, ref(msg)), true
	case msg.Document != nil:
		return chat.NewAttachment(from, notification.Attachment{Kind: notification.AttachmentDocument, FileID: msg.Document.FileID}, ref(msg)), true
	}

	switch strings.TrimSpace(msg.Text) {
	case "":
		return nil, false
	case ButtonClockIn:
		return chat.NewClockIn(from), true
	case ButtonClockOut:
		return chat.NewClockOut(from), true
	case ButtonRequestLeave:
		return chat.NewRequestLeave(from), true
	}

	var replyTo *notification.MessageRef
	if msg.ReplyToMessage != nil {
		r := ref(msg.ReplyToMessage)
		replyTo = &r
	}
	return chat.NewText(from, msg.Text, ref(msg), replyTo), true
}

func translateCommand(msg *tgbotapi.Message, from chat.Sender) (chat.Event, bool) {
	args := strings.Fields(msg.CommandArguments())
	target := ""
	if len(args) > 0 {
		target = args[0]
	}

	switch msg.Command() {
	case "start":
		return chat.NewStart(from), true
	case "clockin":
		return chat.NewClockIn(from), true
	case "clockout":
		return chat.NewClockOut(from), true
	case "leave":
		return chat.NewRequestLeave(from), true
	case "todaystat":
		return chat.NewTodayReport(from, target), true
	case "monthstat":
		return chat.NewMonthReport(from, target), true
	case "msg":
		text := ""
		if len(args) > 1 {
			// Keep the message as typed, only the target is cut off
			text = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(msg.CommandArguments()), target))
		}
		return chat.NewDirectMessage(from, target, text), true
	}
	return nil, false
}
