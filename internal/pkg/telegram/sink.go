package telegram

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sink delivers notifications through the Bot API
type Sink struct {
	bot botAPI
}

func NewSink(bot botAPI) *Sink {
	return &Sink{bot: bot}
}

func (s *Sink) send(ctx context.Context, c tgbotapi.Chattable) (notification.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return notification.MessageRef{}, err
	}
	msg, err := s.bot.Send(c)
	if err != nil {
		return notification.MessageRef{}, err
	}
	return notification.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}, nil
}

func (s *Sink) request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.bot.Request(c)
	return err
}

func (s *Sink) Send(ctx context.Context, m notification.Message) (notification.MessageRef, error) {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	if m.Markdown {
		msg.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if m.Menu {
		msg.ReplyMarkup = menuKeyboard()
	}
	return s.send(ctx, msg)
}

func (s *Sink) SendWithActions(ctx context.Context, chatID int64, text string, actions []notification.Action) (notification.MessageRef, error) {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(actions))
	for _, a := range actions {
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(a.Label, a.Data))
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons)
	return s.send(ctx, msg)
}

func (s *Sink) Reply(ctx context.Context, ref notification.MessageRef, text string) (notification.MessageRef, error) {
	msg := tgbotapi.NewMessage(ref.ChatID, text)
	msg.ReplyToMessageID = ref.MessageID
	return s.send(ctx, msg)
}

// Edit replaces the text of a message; inline buttons are dropped
func (s *Sink) Edit(ctx context.Context, ref notification.MessageRef, text string) error {
	return s.request(ctx, tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text))
}

func (s *Sink) Delete(ctx context.Context, ref notification.MessageRef) error {
	return s.request(ctx, tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID))
}

func (s *Sink) Relay(ctx context.Context, chatID int64, att notification.Attachment, caption string) error {
	var c tgbotapi.Chattable
	switch att.Kind {
	case notification.AttachmentPhoto:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(att.FileID))
		photo.Caption = caption
		c = photo
	case notification.AttachmentDocument:
		doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(att.FileID))
		doc.Caption = caption
		c = doc
	default:
		return fmt.Errorf("unsupported attachment kind %q", att.Kind)
	}
	_, err := s.send(ctx, c)
	return err
}

func (s *Sink) Forward(ctx context.Context, chatID int64, from notification.MessageRef) error {
	_, err := s.send(ctx, tgbotapi.NewForward(chatID, from.ChatID, from.MessageID))
	return err
}
