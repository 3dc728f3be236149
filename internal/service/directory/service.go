package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
)

// slot guards one member. The directory map lock only covers lookups and
// insertions; member state is always touched under the slot lock.
type slot struct {
	mu     sync.Mutex
	member member.Member
}

type directoryImpl struct {
	repo member.MemberRepository

	mu      sync.RWMutex
	members map[string]*slot
}

func NewDirectory(repo member.MemberRepository) member.Directory {
	return &directoryImpl{
		repo:    repo,
		members: make(map[string]*slot),
	}
}

// Load replaces the in-memory projection with the durable store.
func (d *directoryImpl) Load(ctx context.Context) error {
	list, err := d.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load members: %w", err)
	}

	members := make(map[string]*slot, len(list))
	for _, m := range list {
		m.Handle = member.NormalizeHandle(m.Handle)
		if m.Handle == "" {
			slog.Warn("Skipping member without handle", "name", m.Name)
			continue
		}
		m.Marks.Reset()
		members[m.Handle] = &slot{member: m}
	}

	d.mu.Lock()
	d.members = members
	d.mu.Unlock()

	slog.Info("Directory loaded", "members", len(members))
	return nil
}

func (d *directoryImpl) slot(handle string) (*slot, error) {
	key := member.NormalizeHandle(handle)
	if key == "" {
		return nil, member.ErrMissingHandle
	}

	d.mu.RLock()
	s, ok := d.members[key]
	d.mu.RUnlock()
	if !ok {
		return nil, member.ErrNotRegistered
	}
	return s, nil
}

func (d *directoryImpl) Get(handle string) (member.Member, error) {
	s, err := d.slot(handle)
	if err != nil {
		return member.Member{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.member, nil
}

func (d *directoryImpl) Update(handle string, fn func(m *member.Member) error) (member.Member, error) {
	s, err := d.slot(handle)
	if err != nil {
		return member.Member{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.member
	if err := fn(&updated); err != nil {
		return s.member, err
	}
	// The key is immutable
	updated.Handle = s.member.Handle
	s.member = updated
	return updated, nil
}

func (d *directoryImpl) Save(ctx context.Context, handle string) error {
	m, err := d.Get(handle)
	if err != nil {
		return err
	}
	if err := d.repo.Upsert(ctx, m); err != nil {
		return fmt.Errorf("failed to save member %s: %w", m.Handle, err)
	}
	return nil
}

func (d *directoryImpl) BindChat(ctx context.Context, handle string, chatID int64) (member.Member, error) {
	changed := false
	m, err := d.Update(handle, func(m *member.Member) error {
		if m.ChatID != nil && *m.ChatID == chatID {
			return nil
		}
		id := chatID
		m.ChatID = &id
		changed = true
		return nil
	})
	if err != nil {
		return member.Member{}, err
	}
	if !changed {
		return m, nil
	}

	if err := d.Save(ctx, m.Handle); err != nil {
		return m, err
	}
	slog.Info("Member chat bound", "handle", m.Handle, "chat_id", chatID)
	return m, nil
}

func (d *directoryImpl) slots() []*slot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*slot, 0, len(d.members))
	for _, s := range d.members {
		out = append(out, s)
	}
	return out
}

func (d *directoryImpl) Snapshot() []member.Member {
	slots := d.slots()

	out := make([]member.Member, 0, len(slots))
	for _, s := range slots {
		s.mu.Lock()
		out = append(out, s.member)
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

func (d *directoryImpl) ResetMarksBefore(start time.Time) int {
	reset := 0
	for _, s := range d.slots() {
		s.mu.Lock()
		if s.member.Marks.StaleBefore(start) {
			s.member.Marks.Reset()
			reset++
		}
		s.mu.Unlock()
	}
	return reset
}

func (d *directoryImpl) ReplayMark(handle string, kind member.AttendanceState, at time.Time) error {
	s, err := d.slot(handle)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	marks := &s.member.Marks
	t := at
	switch kind {
	case member.StateIn:
		marks.ClockIn = &t
		if marks.Current() == member.StateNotIn {
			marks.State = member.StateIn
		}
	case member.StateOut:
		if marks.ClockIn == nil {
			return member.ErrNotYetClockedIn
		}
		marks.ClockOut = &t
		marks.State = member.StateOut
	default:
		return fmt.Errorf("cannot replay mark %q", kind)
	}
	return nil
}
