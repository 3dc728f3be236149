// Package sink provides a process-local chat transport. It backs dry runs
// without a bot token and the workflow tests.
package sink

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
)

// Sent is one message as the transport saw it.
type Sent struct {
	Ref        notification.MessageRef
	Text       string
	Markdown   bool
	Menu       bool
	Actions    []notification.Action
	ReplyTo    *notification.MessageRef
	Attachment *notification.Attachment
	Forwarded  *notification.MessageRef
}

type MemorySink struct {
	mu      sync.Mutex
	nextID  int
	sent    []Sent
	edited  map[notification.MessageRef]string
	deleted map[notification.MessageRef]bool
	fail    map[int64]error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{
		edited:  make(map[notification.MessageRef]string),
		deleted: make(map[notification.MessageRef]bool),
		fail:    make(map[int64]error),
	}
}

// FailChat makes every delivery to chatID fail with err; nil clears it.
func (s *MemorySink) FailChat(chatID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, chatID)
		return
	}
	s.fail[chatID] = err
}

func (s *MemorySink) record(chatID int64, sent Sent) (notification.MessageRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail[chatID]; err != nil {
		return notification.MessageRef{}, err
	}
	s.nextID++
	sent.Ref = notification.MessageRef{ChatID: chatID, MessageID: s.nextID}
	s.sent = append(s.sent, sent)
	slog.Debug("Message sent", "chat_id", chatID, "message_id", s.nextID, "text", sent.Text)
	return sent.Ref, nil
}

func (s *MemorySink) Send(ctx context.Context, msg notification.Message) (notification.MessageRef, error) {
	return s.record(msg.ChatID, Sent{Text: msg.Text, Markdown: msg.Markdown, Menu: msg.Menu})
}

func (s *MemorySink) SendWithActions(ctx context.Context, chatID int64, text string, actions []notification.Action) (notification.MessageRef, error) {
	return s.record(chatID, Sent{Text: text, Actions: actions})
}

func (s *MemorySink) Reply(ctx context.Context, ref notification.MessageRef, text string) (notification.MessageRef, error) {
	replyTo := ref
	return s.record(ref.ChatID, Sent{Text: text, ReplyTo: &replyTo})
}

func (s *MemorySink) Edit(ctx context.Context, ref notification.MessageRef, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[ref.ChatID]; err != nil {
		return err
	}
	s.edited[ref] = text
	return nil
}

func (s *MemorySink) Delete(ctx context.Context, ref notification.MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[ref.ChatID]; err != nil {
		return err
	}
	s.deleted[ref] = true
	return nil
}

func (s *MemorySink) Relay(ctx context.Context, chatID int64, att notification.Attachment, caption string) error {
	a := att
	_, err := s.record(chatID, Sent{Text: caption, Attachment: &a})
	return err
}

func (s *MemorySink) Forward(ctx context.Context, chatID int64, from notification.MessageRef) error {
	f := from
	_, err := s.record(chatID, Sent{Forwarded: &f})
	return err
}

// Messages returns what was delivered to chatID, oldest first.
func (s *MemorySink) Messages(chatID int64) []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Sent
	for _, m := range s.sent {
		if m.Ref.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Texts returns the text of every message delivered to chatID.
func (s *MemorySink) Texts(chatID int64) []string {
	var out []string
	for _, m := range s.Messages(chatID) {
		out = append(out, m.Text)
	}
	return out
}

// Contains reports whether any message to chatID contains substr.
func (s *MemorySink) Contains(chatID int64, substr string) bool {
	for _, text := range s.Texts(chatID) {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func (s *MemorySink) EditedText(ref notification.MessageRef) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.edited[ref]
	return text, ok
}

func (s *MemorySink) Deleted(ref notification.MessageRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted[ref]
}
