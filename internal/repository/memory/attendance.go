package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/google/uuid"
)

type attendanceRepository struct {
	mu      sync.RWMutex
	records []attendance.Record
}

func NewAttendanceRepository(seed ...attendance.Record) attendance.AttendanceRepository {
	return &attendanceRepository{records: append([]attendance.Record(nil), seed...)}
}

func (r *attendanceRepository) Append(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Record{}, err
		}
		record.ID = id.String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	r.mu.Lock()
	r.records = append(r.records, record)
	r.mu.Unlock()
	return record, nil
}

func (r *attendanceRepository) filter(keep func(attendance.Record) bool) []attendance.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]attendance.Record, 0)
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (r *attendanceRepository) ListByDate(ctx context.Context, date string) ([]attendance.Record, error) {
	return r.filter(func(rec attendance.Record) bool { return rec.Date == date }), nil
}

func (r *attendanceRepository) ListByMonth(ctx context.Context, month string) ([]attendance.Record, error) {
	return r.filter(func(rec attendance.Record) bool { return strings.HasPrefix(rec.Date, month+"-") }), nil
}

func (r *attendanceRepository) ListAll(ctx context.Context) ([]attendance.Record, error) {
	return r.filter(func(attendance.Record) bool { return true }), nil
}
