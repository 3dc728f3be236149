package correlation

import (
	"context"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
)

// Registry pairs a token opened by one channel with the payload another
// channel reports for it. Every token is consumed exactly once.
type Registry interface {
	Open(kind attendance.Kind, handle string, chatID int64) (string, error)

	// Report resolves an open token. It returns false for unknown, already
	// resolved or expired tokens and changes nothing in that case.
	Report(token string, payload Payload) bool

	// Await waits for the token's payload for at most maxWait. On timeout
	// the token is discarded and ErrTimeout is returned.
	Await(ctx context.Context, token string, maxWait time.Duration) (Payload, error)

	// Discard drops a token that will never be awaited.
	Discard(token string)

	// Sweep drops sessions older than maxAge and returns how many were removed.
	Sweep(maxAge time.Duration) int

	Pending() int
}
