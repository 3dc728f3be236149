// Package memory holds process-local repositories for development runs
// without a database and for service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
)

type memberRepository struct {
	mu      sync.RWMutex
	members map[string]member.Member
}

func NewMemberRepository(seed ...member.Member) member.MemberRepository {
	r := &memberRepository{members: make(map[string]member.Member)}
	for _, m := range seed {
		m.Handle = member.NormalizeHandle(m.Handle)
		r.members[m.Handle] = m
	}
	return r
}

func (r *memberRepository) List(ctx context.Context) ([]member.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]member.Member, 0, len(r.members))
	for _, m := range r.members {
		m.Marks = member.DailyMarks{}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

func (r *memberRepository) Upsert(ctx context.Context, m member.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m.Handle = member.NormalizeHandle(m.Handle)
	if m.Handle == "" {
		return member.ErrMissingHandle
	}
	m.Marks = member.DailyMarks{}
	r.members[m.Handle] = m
	return nil
}

func (r *memberRepository) SaveAll(ctx context.Context, members []member.Member) error {
	for _, m := range members {
		if member.NormalizeHandle(m.Handle) == "" {
			return member.ErrMissingHandle
		}
	}
	for _, m := range members {
		if err := r.Upsert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
