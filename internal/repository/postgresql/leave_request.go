package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type leaveRequestRepositoryImpl struct {
	db *database.DB
}

func NewLeaveRequestRepository(db *database.DB) leave.LeaveRequestRepository {
	return &leaveRequestRepositoryImpl{db: db}
}

const leaveColumns = `id, handle, name, requester_chat_id, reason, submitted_at, status, approved_by, decided_at,
	denial_reason, attachments, review_chat_id, review_message_id, created_at, updated_at`

func scanLeaveRequest(row pgx.Row) (leave.LeaveRequest, error) {
	var lr leave.LeaveRequest
	var status string
	err := row.Scan(
		&lr.ID,
		&lr.Handle,
		&lr.Name,
		&lr.RequesterChatID,
		&lr.Reason,
		&lr.SubmittedAt,
		&status,
		&lr.ApprovedBy,
		&lr.DecidedAt,
		&lr.DenialReason,
		&lr.Attachments,
		&lr.ReviewRef.ChatID,
		&lr.ReviewRef.MessageID,
		&lr.CreatedAt,
		&lr.UpdatedAt,
	)
	if err != nil {
		return leave.LeaveRequest{}, err
	}
	lr.Status = leave.LeaveRequestStatus(status)
	return lr, nil
}

// Append implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) Append(ctx context.Context, request leave.LeaveRequest) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	attachments := request.Attachments
	if attachments == nil {
		attachments = []notification.Attachment{}
	}
	if request.Status == "" {
		request.Status = leave.LeaveRequestStatusPending
	}

	query := `
		INSERT INTO leave_requests (
			id, handle, name, requester_chat_id, reason, submitted_at,
			status, approved_by, decided_at, denial_reason,
			attachments, review_chat_id, review_message_id,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13,
			NOW(), NOW()
		)
		RETURNING ` + leaveColumns

	created, err := scanLeaveRequest(q.QueryRow(ctx, query,
		request.ID,
		request.Handle,
		request.Name,
		request.RequesterChatID,
		request.Reason,
		request.SubmittedAt,
		string(request.Status),
		request.ApprovedBy,
		request.DecidedAt,
		request.DenialReason,
		attachments,
		request.ReviewRef.ChatID,
		request.ReviewRef.MessageID,
	))
	if err != nil {
		return leave.LeaveRequest{}, fmt.Errorf("failed to append leave request: %w", err)
	}
	return created, nil
}

// GetByID implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) GetByID(ctx context.Context, id string) (leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveColumns + ` FROM leave_requests WHERE id = $1`

	lr, err := scanLeaveRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return leave.LeaveRequest{}, leave.ErrLeaveRequestNotFound
		}
		return leave.LeaveRequest{}, err
	}
	return lr, nil
}

func (r *leaveRequestRepositoryImpl) list(ctx context.Context, where string, args ...interface{}) ([]leave.LeaveRequest, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + leaveColumns + ` FROM leave_requests ` + where + ` ORDER BY submitted_at, id`

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]leave.LeaveRequest, 0)
	for rows.Next() {
		lr, err := scanLeaveRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, lr)
	}
	return requests, rows.Err()
}

// ListAll implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) ListAll(ctx context.Context) ([]leave.LeaveRequest, error) {
	return r.list(ctx, ``)
}

// ListPending implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) ListPending(ctx context.Context) ([]leave.LeaveRequest, error) {
	return r.list(ctx, `WHERE status = $1`, string(leave.LeaveRequestStatusPending))
}

// UpdateByKey implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) UpdateByKey(ctx context.Context, id string, update leave.LeaveUpdate) error {
	q := GetQuerier(ctx, r.db)

	updates := make([]string, 0)
	args := make([]interface{}, 0)
	argIdx := 1

	if update.Status != nil {
		updates = append(updates, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*update.Status))
		argIdx++
	}
	if update.ApprovedBy != nil {
		updates = append(updates, fmt.Sprintf("approved_by = $%d", argIdx))
		args = append(args, *update.ApprovedBy)
		argIdx++
	}
	if update.DecidedAt != nil {
		updates = append(updates, fmt.Sprintf("decided_at = $%d", argIdx))
		args = append(args, *update.DecidedAt)
		argIdx++
	}
	if update.DenialReason != nil {
		updates = append(updates, fmt.Sprintf("denial_reason = $%d", argIdx))
		args = append(args, *update.DenialReason)
		argIdx++
	}
	if update.Attachments != nil {
		updates = append(updates, fmt.Sprintf("attachments = $%d", argIdx))
		args = append(args, update.Attachments)
		argIdx++
	}
	if update.ReviewRef != nil {
		updates = append(updates, fmt.Sprintf("review_chat_id = $%d", argIdx), fmt.Sprintf("review_message_id = $%d", argIdx+1))
		args = append(args, update.ReviewRef.ChatID, update.ReviewRef.MessageID)
		argIdx += 2
	}

	if len(updates) == 0 {
		return nil
	}
	updates = append(updates, "updated_at = NOW()")

	query := fmt.Sprintf(`UPDATE leave_requests SET %s WHERE id = $%d`, strings.Join(updates, ", "), argIdx)
	args = append(args, id)

	commandTag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update leave request %s: %w", id, err)
	}
	if commandTag.RowsAffected() != 1 {
		return leave.ErrLeaveRequestNotFound
	}
	return nil
}

// Exists implements leave.LeaveRequestRepository.
func (r *leaveRequestRepositoryImpl) Exists(ctx context.Context, id string) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM leave_requests WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}
