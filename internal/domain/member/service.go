package member

import (
	"context"
	"time"
)

// Directory is the in-memory projection of the member store.
// Every mutation of a single member is serialized on that member's own lock.
type Directory interface {
	Load(ctx context.Context) error

	// Get returns a snapshot of the member.
	Get(handle string) (Member, error)

	// Update runs fn with exclusive access to the member. Changes are kept
	// in memory only; call Save to persist identity fields.
	Update(handle string, fn func(m *Member) error) (Member, error)

	Save(ctx context.Context, handle string) error

	// BindChat records the member's messaging identity on first contact.
	BindChat(ctx context.Context, handle string, chatID int64) (Member, error)

	// Snapshot copies every member; used by the daily sweeps.
	Snapshot() []Member

	// ResetMarksBefore clears marks whose clock-in predates start and
	// returns how many members were reset. Marks set on or after start stay.
	ResetMarksBefore(start time.Time) int

	// ReplayMark applies a recovered StateIn or StateOut mark. The last
	// write per kind wins.
	ReplayMark(handle string, kind AttendanceState, at time.Time) error
}
