package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/sse"
	"github.com/google/uuid"
)

// Config holds notification service configuration
type Config struct {
	WorkerCount    int           // default: 4
	QueueSize      int           // default: 256, per worker
	SendTimeout    time.Duration // default: 15 seconds
	ReviewChatID   int64
	OperatorChatID int64 // falls back to ReviewChatID
}

type service struct {
	sink   notification.Sink
	hub    *sse.Hub
	config Config

	queues []chan notification.Message
	wg     sync.WaitGroup
	stopMu sync.RWMutex
	stopCh chan struct{}
	closed bool
	now    func() time.Time
}

// NewNotificationService creates a new notification service with background
// workers. Messages are sharded by recipient, so one recipient always hits
// the same worker and sees its messages in order.
func NewNotificationService(sink notification.Sink, hub *sse.Hub, cfg Config) notification.Service {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	if cfg.OperatorChatID == 0 {
		cfg.OperatorChatID = cfg.ReviewChatID
	}

	s := &service{
		sink:   sink,
		hub:    hub,
		config: cfg,
		queues: make([]chan notification.Message, cfg.WorkerCount),
		stopCh: make(chan struct{}),
		now:    time.Now,
	}

	for i := range s.queues {
		s.queues[i] = make(chan notification.Message, cfg.QueueSize)
		s.wg.Add(1)
		go s.worker(i, s.queues[i])
	}

	slog.Info("Notification service started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize)

	return s
}

// worker delivers the messages of its shard one at a time
func (s *service) worker(id int, queue <-chan notification.Message) {
	defer s.wg.Done()

	for {
		select {
		case msg := <-queue:
			s.deliver(id, msg)
		case <-s.stopCh:
			// Drain what was accepted before the stop
			for {
				select {
				case msg := <-queue:
					s.deliver(id, msg)
				default:
					return
				}
			}
		}
	}
}

func (s *service) deliver(worker int, msg notification.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.SendTimeout)
	defer cancel()

	if _, err := s.sink.Send(ctx, msg); err != nil {
		slog.Warn("Notification delivery failed", "worker", worker, "chat_id", msg.ChatID, "error", err)
	}
}

func (s *service) shard(chatID int64) chan notification.Message {
	if chatID < 0 {
		chatID = -chatID
	}
	return s.queues[chatID%int64(len(s.queues))]
}

func (s *service) enqueue(ctx context.Context, msg notification.Message) {
	s.stopMu.RLock()
	defer s.stopMu.RUnlock()

	if s.closed {
		slog.Warn("Notification dropped", "chat_id", msg.ChatID, "error", notification.ErrServiceStopped)
		return
	}

	select {
	case s.shard(msg.ChatID) <- msg:
	case <-ctx.Done():
		slog.Warn("Notification dropped", "chat_id", msg.ChatID, "error", ctx.Err())
	}
}

// Notify queues a plain direct message
func (s *service) Notify(ctx context.Context, chatID int64, text string) {
	s.enqueue(ctx, notification.Message{ChatID: chatID, Text: text})
}

// NotifyMarkdown queues a direct message rendered as markdown
func (s *service) NotifyMarkdown(ctx context.Context, chatID int64, text string) {
	s.enqueue(ctx, notification.Message{ChatID: chatID, Text: text, Markdown: true})
}

// NotifyMenu queues a direct message carrying the action keyboard
func (s *service) NotifyMenu(ctx context.Context, chatID int64, text string) {
	s.enqueue(ctx, notification.Message{ChatID: chatID, Text: text, Menu: true})
}

// NotifyNow sends synchronously, bypassing the queue
func (s *service) NotifyNow(ctx context.Context, chatID int64, text string) error {
	_, err := s.sink.Send(ctx, notification.Message{ChatID: chatID, Text: text})
	return err
}

// PostReview posts a prompt with actions to the review channel and returns its reference
func (s *service) PostReview(ctx context.Context, text string, actions []notification.Action, event notification.Event) (notification.MessageRef, error) {
	if s.config.ReviewChatID == 0 {
		return notification.MessageRef{}, notification.ErrNoReviewChannel
	}

	ref, err := s.sink.SendWithActions(ctx, s.config.ReviewChatID, text, actions)
	if err != nil {
		return notification.MessageRef{}, err
	}

	s.publish(event, text)
	return ref, nil
}

// EditReview replaces the text of a review prompt, dropping its actions
func (s *service) EditReview(ctx context.Context, ref notification.MessageRef, text string, event notification.Event) {
	if !ref.IsZero() {
		if err := s.sink.Edit(ctx, ref, text); err != nil {
			slog.Warn("Failed to edit review message", "chat_id", ref.ChatID, "message_id", ref.MessageID, "error", err)
		}
	}
	s.publish(event, text)
}

// Prompt posts text as a reply to origin
func (s *service) Prompt(ctx context.Context, origin notification.MessageRef, text string) (notification.MessageRef, error) {
	return s.sink.Reply(ctx, origin, text)
}

func (s *service) DeleteMessage(ctx context.Context, ref notification.MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := s.sink.Delete(ctx, ref); err != nil {
		slog.Warn("Failed to delete message", "chat_id", ref.ChatID, "message_id", ref.MessageID, "error", err)
	}
}

// RelayAttachment copies a file to the review channel
func (s *service) RelayAttachment(ctx context.Context, att notification.Attachment, caption string, event notification.Event) {
	if s.config.ReviewChatID == 0 {
		slog.Warn("Attachment not relayed", "error", notification.ErrNoReviewChannel)
		return
	}
	if err := s.sink.Relay(ctx, s.config.ReviewChatID, att, caption); err != nil {
		slog.Warn("Failed to relay attachment", "kind", att.Kind, "error", err)
		return
	}
	s.publish(event, caption)
}

// ForwardNote forwards a member message to the review channel, followed by caption
func (s *service) ForwardNote(ctx context.Context, from notification.MessageRef, caption string, event notification.Event) {
	if s.config.ReviewChatID == 0 {
		return
	}
	if err := s.sink.Forward(ctx, s.config.ReviewChatID, from); err != nil {
		slog.Warn("Failed to forward note", "from_chat_id", from.ChatID, "error", err)
		return
	}
	// Same shard as any other review channel message, so the caption follows the note
	s.enqueue(ctx, notification.Message{ChatID: s.config.ReviewChatID, Text: caption})
	s.publish(event, caption)
}

// Advise posts an informational message to the review channel
func (s *service) Advise(ctx context.Context, text string, event notification.Event) {
	if s.config.ReviewChatID != 0 {
		s.enqueue(ctx, notification.Message{ChatID: s.config.ReviewChatID, Text: text})
	}
	s.publish(event, text)
}

// AlertOperator raises an internal failure to the operator, never to members
func (s *service) AlertOperator(ctx context.Context, text string) {
	s.publish(notification.Event{Type: notification.TypeOperatorAlert}, text)
	if s.config.OperatorChatID == 0 {
		slog.Error("Operator alert with no operator channel", "text", text)
		return
	}
	s.enqueue(ctx, notification.Message{ChatID: s.config.OperatorChatID, Text: text})
}

func (s *service) publish(event notification.Event, text string) {
	if s.hub == nil || event.Type == "" {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Text == "" {
		event.Text = text
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now()
	}

	s.hub.Broadcast(sse.Event{
		Event: string(event.Type),
		Data:  event,
	})
}

// Subscribe creates an SSE subscription for a dashboard client
func (s *service) Subscribe(ctx context.Context, subscriberID string) (<-chan notification.Event, func()) {
	ch, cleanup := s.hub.Subscribe(subscriberID)

	out := make(chan notification.Event, 10)

	go func() {
		defer close(out)
		for {
			select {
			case event, ok := <-ch:
				if !ok {
					return
				}
				if e, ok := event.Data.(notification.Event); ok {
					select {
					case out <- e:
					case <-ctx.Done():
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cleanup
}

// Stop gracefully stops the notification service, delivering what is already queued
func (s *service) Stop() {
	s.stopMu.Lock()
	if s.closed {
		s.stopMu.Unlock()
		return
	}
	s.closed = true
	close(s.stopCh)
	s.stopMu.Unlock()

	s.wg.Wait()
	slog.Info("Notification service stopped")
}
