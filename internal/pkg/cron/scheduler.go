package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job represents a scheduled job. A job either repeats every Interval or
// fires once a day at Daily in the scheduler's location.
type Job struct {
	Name     string
	Interval time.Duration
	Daily    *TimeOfDay
	Fn       func(ctx context.Context) error
}

// TimeOfDay is a local wall-clock time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Next returns the first occurrence of the time of day strictly after now, in loc.
func (t TimeOfDay) Next(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), t.Hour, t.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, t.Hour, t.Minute, 0, 0, loc)
	}
	return next
}

// Scheduler manages scheduled jobs
type Scheduler struct {
	jobs   []Job
	loc    *time.Location
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a new cron scheduler anchored to loc
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		jobs:   make([]Job, 0),
		loc:    loc,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Location returns the timezone daily jobs are anchored to
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// AddJob adds an interval job to the scheduler
func (s *Scheduler) AddJob(name string, interval time.Duration, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, Job{
		Name:     name,
		Interval: interval,
		Fn:       fn,
	})
	slog.Info("Cron job registered", "name", name, "interval", interval)
}

// AddDaily adds a job that fires every day at hour:minute local time
func (s *Scheduler) AddDaily(name string, hour, minute int, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = append(s.jobs, Job{
		Name:  name,
		Daily: &TimeOfDay{Hour: hour, Minute: minute},
		Fn:    fn,
	})
	slog.Info("Cron job registered", "name", name, "at", time.Date(0, 1, 1, hour, minute, 0, 0, s.loc).Format("15:04"), "timezone", s.loc.String())
}

// Jobs returns a copy of the registered jobs
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]Job, len(s.jobs))
	copy(jobs, s.jobs)
	return jobs
}

// Start begins running all scheduled jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		s.wg.Add(1)
		if job.Daily != nil {
			go s.runDaily(job)
		} else {
			go s.runJob(job)
		}
	}

	slog.Info("Cron scheduler started", "job_count", len(s.jobs))
}

// Stop gracefully stops all scheduled jobs
func (s *Scheduler) Stop() {
	slog.Info("Stopping cron scheduler...")
	s.cancel()
	s.wg.Wait()
	slog.Info("Cron scheduler stopped")
}

// runJob runs an interval job on its schedule
func (s *Scheduler) runJob(job Job) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			slog.Info("Cron job stopping", "name", job.Name)
			return
		case <-ticker.C:
			s.executeJob(job)
		}
	}
}

// runDaily sleeps until the next wall-clock occurrence, runs, and repeats.
// The next occurrence is recomputed every round.
func (s *Scheduler) runDaily(job Job) {
	defer s.wg.Done()

	for {
		next := job.Daily.Next(s.now(), s.loc)
		timer := time.NewTimer(next.Sub(s.now()))
		slog.Debug("Cron job scheduled", "name", job.Name, "next_run", next)

		select {
		case <-s.ctx.Done():
			timer.Stop()
			slog.Info("Cron job stopping", "name", job.Name)
			return
		case <-timer.C:
			s.executeJob(job)
		}
	}
}

// executeJob executes a job and logs results
func (s *Scheduler) executeJob(job Job) {
	start := time.Now()
	slog.Debug("Cron job starting", "name", job.Name)

	if err := job.Fn(s.ctx); err != nil {
		slog.Error("Cron job failed", "name", job.Name, "error", err, "duration", time.Since(start))
	} else {
		slog.Debug("Cron job completed", "name", job.Name, "duration", time.Since(start))
	}
}

// RunOnce runs all jobs once (useful for testing)
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, job := range s.jobs {
		if err := job.Fn(ctx); err != nil {
			slog.Error("Cron job failed", "name", job.Name, "error", err)
		}
	}
}
