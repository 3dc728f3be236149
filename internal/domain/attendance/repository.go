package attendance

import (
	"context"
)

// AttendanceRepository is the append-only attendance log.
type AttendanceRepository interface {
	// Append writes one record. Records are never updated afterwards.
	Append(ctx context.Context, record Record) (Record, error)

	// ListByDate returns records of one local date ordered by timestamp.
	ListByDate(ctx context.Context, date string) ([]Record, error)

	// ListByMonth returns records whose date starts with month (YYYY-MM).
	ListByMonth(ctx context.Context, month string) ([]Record, error)

	ListAll(ctx context.Context) ([]Record, error)
}
