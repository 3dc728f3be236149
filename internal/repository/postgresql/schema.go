package postgresql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/attendance-bot/internal/pkg/database"
)

// schema is applied at startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS members (
		handle     TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		latitude   DOUBLE PRECISION NOT NULL DEFAULT 0,
		longitude  DOUBLE PRECISION NOT NULL DEFAULT 0,
		address    TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL DEFAULT 'employee',
		chat_id    BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS attendance_records (
		id          UUID PRIMARY KEY,
		handle      TEXT NOT NULL,
		name        TEXT NOT NULL,
		date        TEXT NOT NULL,
		kind        TEXT NOT NULL CHECK (kind IN ('in', 'out')),
		recorded_at TIMESTAMPTZ NOT NULL,
		address     TEXT NOT NULL DEFAULT '',
		distance_m  INTEGER NOT NULL DEFAULT 0,
		status      TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS attendance_records_date_idx ON attendance_records (date, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS leave_requests (
		id                TEXT PRIMARY KEY,
		handle            TEXT NOT NULL,
		name              TEXT NOT NULL,
		requester_chat_id BIGINT NOT NULL,
		reason            TEXT NOT NULL,
		submitted_at      TIMESTAMPTZ NOT NULL,
		status            TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'denied')),
		approved_by       TEXT,
		decided_at        TIMESTAMPTZ,
		denial_reason     TEXT,
		attachments       JSONB NOT NULL DEFAULT '[]',
		review_chat_id    BIGINT NOT NULL DEFAULT 0,
		review_message_id INTEGER NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS leave_requests_status_idx ON leave_requests (status)`,
}

// EnsureSchema creates the tables the repositories need
func EnsureSchema(ctx context.Context, db *database.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	slog.Info("Database schema ensured", "statements", len(schema))
	return nil
}
