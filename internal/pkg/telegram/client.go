package telegram

import (
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/chat"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Labels of the member keyboard. The update translator matches them back.
const (
	ButtonClockIn      = "🟢 Clock in"
	ButtonClockOut     = "🔴 Clock out"
	ButtonRequestLeave = "📝 Request leave"
)

// botAPI is the part of tgbotapi.BotAPI the sink needs.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Client wraps the Telegram Bot API SDK
type Client struct {
	bot *tgbotapi.BotAPI
}

// NewClient logs in with the bot token
func NewClient(token string, debug bool) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	bot.Debug = debug

	slog.Info("Telegram bot authorized", "username", bot.Self.UserName)
	return &Client{bot: bot}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

// Sink returns the notification transport backed by this bot
func (c *Client) Sink() *Sink {
	return NewSink(c.bot)
}

// Poller returns a long-polling update loop feeding the router
func (c *Client) Poller(router chat.Router, timeoutSeconds int) *Poller {
	return NewPoller(c.bot, router, timeoutSeconds)
}

func menuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonClockIn),
			tgbotapi.NewKeyboardButton(ButtonClockOut),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonRequestLeave),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}
