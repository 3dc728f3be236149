package telegram

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/chat"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type updateSource interface {
	botAPI
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

const (
	defaultWorkers   = 8
	workerQueueDepth = 32
)

// Poller long-polls the Bot API and hands updates to workers sharded by sender,
// so one member's events stay ordered while different members proceed in parallel.
type Poller struct {
	bot     updateSource
	router  chat.Router
	timeout int
	workers int
}

func NewPoller(bot updateSource, router chat.Router, timeoutSeconds int) *Poller {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &Poller{bot: bot, router: router, timeout: timeoutSeconds, workers: defaultWorkers}
}

// Run blocks until ctx is done and every queued update has been handled
func (p *Poller) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout
	u.AllowedUpdates = []string{"message", "callback_query"}

	updates := p.bot.GetUpdatesChan(u)
	defer p.bot.StopReceivingUpdates()

	// Updates already queued at shutdown are still handled and answered
	workCtx := context.WithoutCancel(ctx)
	queues := make([]chan tgbotapi.Update, p.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan tgbotapi.Update, workerQueueDepth)
		wg.Add(1)
		go func(queue <-chan tgbotapi.Update) {
			defer wg.Done()
			for update := range queue {
				p.Handle(workCtx, update)
			}
		}(queues[i])
	}
	defer func() {
		for _, q := range queues {
			close(q)
		}
		wg.Wait()
	}()

	slog.Info("Telegram poller started", "workers", p.workers)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Telegram poller stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			queue := queues[p.shard(update)]
			select {
			case queue <- update:
			default:
				select {
				case queue <- update:
				case <-ctx.Done():
					slog.Info("Telegram poller stopped")
					return nil
				}
			}
		}
	}
}

// shard picks the worker for an update by sender handle, falling back to the user id
func (p *Poller) shard(update tgbotapi.Update) int {
	var user *tgbotapi.User
	switch {
	case update.CallbackQuery != nil:
		user = update.CallbackQuery.From
	case update.Message != nil:
		user = update.Message.From
	}

	h := fnv.New32a()
	switch {
	case user == nil:
	case user.UserName != "":
		h.Write([]byte(strings.ToLower(user.UserName)))
	default:
		var id [8]byte
		for i := range id {
			id[i] = byte(user.ID >> (8 * i))
		}
		h.Write(id[:])
	}
	return int(h.Sum32() % uint32(p.workers))
}

// Handle routes one update and answers button presses
func (p *Poller) Handle(ctx context.Context, update tgbotapi.Update) {
	event, ok := Translate(update)
	if !ok {
		if q := update.CallbackQuery; q != nil {
			p.answer(tgbotapi.NewCallback(q.ID, ""))
		}
		return
	}

	err := p.router.Dispatch(ctx, event)

	decision, isDecision := event.(chat.Decision)
	if !isDecision {
		if err != nil {
			slog.Warn("Chat event failed", "sender", event.Sender().Handle, "error", err)
		}
		return
	}

	q := update.CallbackQuery
	switch {
	case err == nil && decision.Approve:
		p.answer(tgbotapi.NewCallback(q.ID, "Approved"))
	case err == nil:
		p.answer(tgbotapi.NewCallback(q.ID, "Please reply to the prompt with a reason"))
	case errors.Is(err, leave.ErrAlreadyDecided), errors.Is(err, leave.ErrNotReviewer), errors.Is(err, leave.ErrLeaveRequestNotFound):
		p.answer(tgbotapi.NewCallbackWithAlert(q.ID, err.Error()))
	default:
		slog.Warn("Leave decision failed", "request_id", decision.RequestID, "error", err)
		p.answer(tgbotapi.NewCallbackWithAlert(q.ID, "Something went wrong, please try again."))
	}
}

func (p *Poller) answer(cb tgbotapi.CallbackConfig) {
	if _, err := p.bot.Request(cb); err != nil {
		slog.Warn("Failed to answer callback", "callback_id", cb.CallbackQueryID, "error", err)
	}
}
