package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type attendanceRepositoryImpl struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepositoryImpl{db: db}
}

const attendanceColumns = `id, handle, name, date, kind, recorded_at, address, distance_m, status, created_at`

// Append implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) Append(ctx context.Context, record attendance.Record) (attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return attendance.Record{}, err
		}
		record.ID = id.String()
	}

	query := `
		INSERT INTO attendance_records (` + attendanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		record.ID,
		record.Handle,
		record.Name,
		record.Date,
		string(record.Kind),
		record.Timestamp,
		record.Address,
		record.DistanceM,
		record.Status,
	).Scan(&record.CreatedAt)
	if err != nil {
		return attendance.Record{}, fmt.Errorf("failed to append attendance record: %w", err)
	}

	return record, nil
}

func (r *attendanceRepositoryImpl) list(ctx context.Context, where string, args ...interface{}) ([]attendance.Record, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendance_records ` + where + ` ORDER BY recorded_at, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]attendance.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (attendance.Record, error) {
	var rec attendance.Record
	var kind string
	var recordedAt time.Time
	err := row.Scan(
		&rec.ID,
		&rec.Handle,
		&rec.Name,
		&rec.Date,
		&kind,
		&recordedAt,
		&rec.Address,
		&rec.DistanceM,
		&rec.Status,
		&rec.CreatedAt,
	)
	if err != nil {
		return attendance.Record{}, err
	}
	rec.Kind = attendance.Kind(kind)
	rec.Timestamp = recordedAt
	return rec, nil
}

// ListByDate implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListByDate(ctx context.Context, date string) ([]attendance.Record, error) {
	return r.list(ctx, `WHERE date = $1`, date)
}

// ListByMonth implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListByMonth(ctx context.Context, month string) ([]attendance.Record, error) {
	return r.list(ctx, `WHERE date LIKE $1`, month+"-%")
}

// ListAll implements attendance.AttendanceRepository.
func (r *attendanceRepositoryImpl) ListAll(ctx context.Context) ([]attendance.Record, error) {
	return r.list(ctx, ``)
}
