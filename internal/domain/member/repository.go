package member

import "context"

// MemberRepository is the durable directory store.
type MemberRepository interface {
	// List returns every registered member. Daily marks are not persisted.
	List(ctx context.Context) ([]Member, error)

	Upsert(ctx context.Context, m Member) error

	// SaveAll writes the whole directory in one transaction.
	SaveAll(ctx context.Context, members []Member) error
}
