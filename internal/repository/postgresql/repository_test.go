package postgresql_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/leave"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-bot/internal/repository/postgresql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_URL and starts from empty tables.
// Tests are skipped when no database is configured.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.NewPostgreSQLDB(dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx := context.Background()
	require.NoError(t, postgresql.EnsureSchema(ctx, db))

	for _, table := range []string{"members", "attendance_records", "leave_requests"} {
		_, err := db.Exec(ctx, "TRUNCATE TABLE "+table)
		require.NoError(t, err)
	}
	return db
}

func TestMemberRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewMemberRepository(db)

	chatID := int64(4242)
	require.NoError(t, repo.SaveAll(ctx, []member.Member{
		{Handle: "@Dave", Name: "Dave", Latitude: 25.03, Longitude: 121.56, Address: "Taipei"},
		{Handle: "eve", Name: "Eve", Role: member.RoleSupervisor, ChatID: &chatID},
	}))

	members, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "dave", members[0].Handle)
	assert.Equal(t, member.RoleEmployee, members[0].Role)
	assert.Nil(t, members[0].ChatID)
	require.NotNil(t, members[1].ChatID)
	assert.Equal(t, chatID, *members[1].ChatID)

	daveChat := int64(7)
	dave := members[0]
	dave.ChatID = &daveChat
	require.NoError(t, repo.Upsert(ctx, dave))

	members, err = repo.List(ctx)
	require.NoError(t, err)
	require.NotNil(t, members[0].ChatID)
	assert.Equal(t, daveChat, *members[0].ChatID)

	assert.ErrorIs(t, repo.Upsert(ctx, member.Member{Name: "nobody"}), member.ErrMissingHandle)
}

func TestAttendanceRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewAttendanceRepository(db)

	loc := time.FixedZone("CST", 8*3600)
	in := time.Date(2024, 3, 5, 9, 10, 0, 0, loc)

	out, err := repo.Append(ctx, attendance.Record{
		Handle: "dave", Name: "Dave", Date: "2024-03-05", Kind: attendance.KindOut,
		Timestamp: in.Add(8 * time.Hour), Address: "Taipei", DistanceM: 15, Status: attendance.StatusOnTime,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)

	_, err = repo.Append(ctx, attendance.Record{Handle: "dave", Name: "Dave", Date: "2024-03-05", Kind: attendance.KindIn, Timestamp: in})
	require.NoError(t, err)
	_, err = repo.Append(ctx, attendance.Record{Handle: "dave", Name: "Dave", Date: "2024-04-01", Kind: attendance.KindIn, Timestamp: in.AddDate(0, 0, 27)})
	require.NoError(t, err)

	day, err := repo.ListByDate(ctx, "2024-03-05")
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, attendance.KindIn, day[0].Kind)
	assert.Equal(t, 15, day[1].DistanceM)
	assert.True(t, day[0].Timestamp.Equal(in))

	month, err := repo.ListByMonth(ctx, "2024-03")
	require.NoError(t, err)
	assert.Len(t, month, 2)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestLeaveRequestRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := postgresql.NewLeaveRequestRepository(db)

	submitted := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	created, err := repo.Append(ctx, leave.LeaveRequest{
		ID: "leave_dave_1709632800", Handle: "dave", Name: "Dave", RequesterChatID: 7,
		Reason: "dentist", SubmittedAt: submitted,
	})
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusPending, created.Status)
	assert.Empty(t, created.Attachments)

	exists, err := repo.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	ref := notification.MessageRef{ChatID: -100, MessageID: 12}
	attachments := []notification.Attachment{{Kind: notification.AttachmentPhoto, FileID: "p1"}}
	require.NoError(t, repo.UpdateByKey(ctx, created.ID, leave.LeaveUpdate{ReviewRef: &ref, Attachments: attachments}))

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, ref, pending[0].ReviewRef)
	assert.Equal(t, attachments, pending[0].Attachments)

	status := leave.LeaveRequestStatusDenied
	by := "eve"
	reason := "missing documentation"
	decided := submitted.Add(time.Hour)
	require.NoError(t, repo.UpdateByKey(ctx, created.ID, leave.LeaveUpdate{
		Status: &status, ApprovedBy: &by, DecidedAt: &decided, DenialReason: &reason,
	}))

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.LeaveRequestStatusDenied, got.Status)
	require.NotNil(t, got.DenialReason)
	assert.Equal(t, reason, *got.DenialReason)

	pending, err = repo.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = repo.GetByID(ctx, "leave_nobody_1")
	assert.ErrorIs(t, err, leave.ErrLeaveRequestNotFound)
	assert.ErrorIs(t, repo.UpdateByKey(ctx, "leave_nobody_1", leave.LeaveUpdate{Status: &status}), leave.ErrLeaveRequestNotFound)
}
