package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/correlation"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
)

const (
	// Handshakes older than this are orphans; nobody awaits them any more.
	orphanHandshakeAge = 10 * time.Minute
)

type AttendanceJobs struct {
	directory       member.Directory
	attendanceRepo  attendance.AttendanceRepository
	registry        correlation.Registry
	notificationSvc notification.Service
	workHours       attendance.WorkHours
	loc             *time.Location
	now             func() time.Time

	mu           sync.Mutex
	lastMissDate string
}

func NewAttendanceJobs(
	directory member.Directory,
	attendanceRepo attendance.AttendanceRepository,
	registry correlation.Registry,
	notificationSvc notification.Service,
	workHours attendance.WorkHours,
	loc *time.Location,
) *AttendanceJobs {
	return &AttendanceJobs{
		directory:       directory,
		attendanceRepo:  attendanceRepo,
		registry:        registry,
		notificationSvc: notificationSvc,
		workHours:       workHours,
		loc:             loc,
		now:             time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddDaily("reset_daily_marks", 0, 1, j.ResetDailyMarks)
	scheduler.AddDaily("late_checkout_reminder", 18, 45, j.RemindLateCheckout)
	scheduler.AddDaily("overnight_missing_checkout", j.workHours.StartHour, j.workHours.StartMinute, j.FlagOvernightMisses)
	scheduler.AddJob("sweep_orphan_handshakes", 1*time.Hour, j.SweepHandshakes)
}

// ResetDailyMarks clears marks left over from previous days. Clock-ins already
// recorded for the new day are kept, so re-running it is harmless.
func (j *AttendanceJobs) ResetDailyMarks(ctx context.Context) error {
	now := j.now().In(j.loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, j.loc)

	reset := j.directory.ResetMarksBefore(startOfDay)
	slog.Info("Cron: daily marks reset", "date", startOfDay.Format("2006-01-02"), "members", reset)
	return nil
}

// RemindLateCheckout nudges members who clocked in today and have not clocked out.
func (j *AttendanceJobs) RemindLateCheckout(ctx context.Context) error {
	now := j.now().In(j.loc)

	reminded := 0
	for _, m := range j.directory.Snapshot() {
		if m.ChatID == nil || m.Marks.Current() != member.StateIn || m.Marks.ClockIn == nil {
			continue
		}
		if m.Marks.ClockIn.In(j.loc).Format("2006-01-02") != now.Format("2006-01-02") {
			continue
		}
		// Queued per recipient; a failed delivery is logged by the worker and
		// never stops the loop.
		j.notificationSvc.Notify(ctx, *m.ChatID, "Reminder: you have not clocked out yet today. Please remember to clock out.")
		reminded++
	}

	slog.Info("Cron: late checkout reminders queued", "count", reminded)
	return nil
}

// FlagOvernightMisses tells members, and the review channel, about yesterday's
// clock-ins without a matching clock-out. Yesterday is read from the durable
// log because the marks were reset at midnight.
func (j *AttendanceJobs) FlagOvernightMisses(ctx context.Context) error {
	yesterday := j.now().In(j.loc).AddDate(0, 0, -1).Format("2006-01-02")

	j.mu.Lock()
	if j.lastMissDate == yesterday {
		j.mu.Unlock()
		return nil
	}
	j.mu.Unlock()

	records, err := j.attendanceRepo.ListByDate(ctx, yesterday)
	if err != nil {
		return fmt.Errorf("failed to list attendance for %s: %w", yesterday, err)
	}

	type marks struct {
		name string
		in   bool
		out  bool
	}
	byHandle := make(map[string]*marks)
	var order []string
	for _, r := range records {
		m, ok := byHandle[r.Handle]
		if !ok {
			m = &marks{name: r.Name}
			byHandle[r.Handle] = m
			order = append(order, r.Handle)
		}
		switch r.Kind {
		case attendance.KindIn:
			m.in = true
		case attendance.KindOut:
			m.out = true
		}
	}

	flagged := 0
	for _, handle := range order {
		m := byHandle[handle]
		if !m.in || m.out {
			continue
		}
		flagged++

		if mem, err := j.directory.Get(handle); err == nil && mem.ChatID != nil {
			j.notificationSvc.Notify(ctx, *mem.ChatID, fmt.Sprintf(
				"It looks like you forgot to clock out yesterday (%s). Please contact your supervisor.", yesterday))
		}
		j.notificationSvc.Advise(ctx,
			fmt.Sprintf("Notice: %s (@%s) did not clock out yesterday (%s).", m.name, handle, yesterday),
			notification.Event{
				Type: notification.TypeAttendanceMissing,
				Data: map[string]interface{}{"handle": handle, "date": yesterday},
			})
	}

	j.mu.Lock()
	j.lastMissDate = yesterday
	j.mu.Unlock()

	slog.Info("Cron: overnight missing checkouts flagged", "date", yesterday, "count", flagged)
	return nil
}

// SweepHandshakes drops handshakes nobody is waiting for any more.
func (j *AttendanceJobs) SweepHandshakes(ctx context.Context) error {
	removed := j.registry.Sweep(orphanHandshakeAge)
	if removed > 0 {
		slog.Warn("Cron: orphan handshakes removed", "count", removed)
	}
	return nil
}
