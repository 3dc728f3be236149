package correlation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/correlation"
)

// tokenBytes of crypto randomness per token (256 bits).
const tokenBytes = 32

type entry struct {
	session correlation.Session
	// closed once, by the Report that resolves the session
	done chan struct{}
}

type registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

func NewRegistry() correlation.Registry {
	return &registry{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate handshake token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (r *registry) Open(kind attendance.Kind, handle string, chatID int64) (string, error) {
	if !kind.Valid() {
		return "", attendance.ErrInvalidKind
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		token, err := newToken()
		if err != nil {
			return "", err
		}
		if _, exists := r.sessions[token]; exists {
			continue
		}
		r.sessions[token] = &entry{
			session: correlation.Session{
				Token:     token,
				Kind:      kind,
				Handle:    handle,
				ChatID:    chatID,
				CreatedAt: r.now(),
			},
			done: make(chan struct{}),
		}
		return token, nil
	}
}

func (r *registry) Report(token string, payload correlation.Payload) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[token]
	if !ok || e.session.Resolved {
		return false
	}
	if payload.ReceivedAt.IsZero() {
		payload.ReceivedAt = r.now()
	}
	e.session.Payload = &payload
	e.session.Resolved = true
	close(e.done)
	return true
}

func (r *registry) Await(ctx context.Context, token string, maxWait time.Duration) (correlation.Payload, error) {
	r.mu.Lock()
	e, ok := r.sessions[token]
	r.mu.Unlock()
	if !ok {
		return correlation.Payload{}, correlation.ErrTokenNotFound
	}

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	var waitErr error
	select {
	case <-e.done:
	case <-timer.C:
		waitErr = correlation.ErrTimeout
	case <-ctx.Done():
		waitErr = ctx.Err()
	}

	// Whoever takes the lock first wins: a report that landed before this
	// point is consumed even though the deadline fired.
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[token]
	if !ok || current != e {
		return correlation.Payload{}, correlation.ErrTokenNotFound
	}
	delete(r.sessions, token)

	if e.session.Resolved && e.session.Payload != nil {
		return *e.session.Payload, nil
	}
	return correlation.Payload{}, waitErr
}

func (r *registry) Discard(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}

func (r *registry) Sweep(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-maxAge)
	removed := 0
	for token, e := range r.sessions {
		if e.session.CreatedAt.Before(cutoff) {
			delete(r.sessions, token)
			removed++
			slog.Debug("Handshake swept", "handle", e.session.Handle, "kind", e.session.Kind, "resolved", e.session.Resolved)
		}
	}
	return removed
}

func (r *registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
