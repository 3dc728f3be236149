package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/correlation"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/member"
	"github.com/cmlabs-hris/attendance-bot/internal/domain/notification"
	"github.com/cmlabs-hris/attendance-bot/internal/pkg/utils"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
	clockLayout    = "15:04:05"

	// AddressUnavailable is recorded when the geocoder cannot label a position.
	AddressUnavailable = "address unavailable"

	holidayNotice = "Today is a public holiday, clocking is not required. Continuing anyway."

	// reservedToken holds a member's in-flight slot while the handshake is being opened.
	reservedToken = ""
)

type Config struct {
	WorkHours        attendance.WorkHours
	Location         *time.Location
	PublicBaseURL    string
	HandshakeTimeout time.Duration // default: 60 seconds
	LookupTimeout    time.Duration // default: 10 seconds, geocoding and holiday lookups
}

type AttendanceServiceImpl struct {
	directory member.Directory
	registry  correlation.Registry
	attendance.AttendanceRepository
	notifier notification.Service
	geocoder attendance.Geocoder
	holidays attendance.HolidayChecker
	config   Config
	now      func() time.Time

	mu       sync.Mutex
	inFlight map[string]string // handle -> open token
	wg       sync.WaitGroup

	stopCtx context.Context
	stop    context.CancelFunc
}

// timePtrToString safely formats a *time.Time as a local clock time.
func timePtrToString(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	format := t.In(loc).Format(clockLayout)
	return &format
}

func (a *AttendanceServiceImpl) local(t time.Time) time.Time {
	return t.In(a.config.Location)
}

// checkGuard tells whether the member's marks allow the clock action.
func checkGuard(marks member.DailyMarks, kind attendance.Kind) error {
	switch kind {
	case attendance.KindIn:
		if marks.Current() != member.StateNotIn {
			return member.ErrAlreadyClockedIn
		}
	case attendance.KindOut:
		switch marks.Current() {
		case member.StateNotIn:
			return member.ErrNotYetClockedIn
		case member.StateOut:
			return member.ErrAlreadyClockedOut
		}
	default:
		return attendance.ErrInvalidKind
	}
	return nil
}

// Begin implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Begin(ctx context.Context, req attendance.ClockRequest) (attendance.Ticket, error) {
	if err := req.Validate(); err != nil {
		return attendance.Ticket{}, err
	}
	if a.stopCtx.Err() != nil {
		return attendance.Ticket{}, attendance.ErrShuttingDown
	}

	m, err := a.directory.Get(req.Handle)
	if err != nil {
		return attendance.Ticket{}, err
	}
	if err := checkGuard(m.Marks, req.Kind); err != nil {
		return attendance.Ticket{}, err
	}

	// Reserve the member's slot before any slow lookup so a double tap is
	// rejected without side effects.
	a.mu.Lock()
	if _, busy := a.inFlight[m.Handle]; busy {
		a.mu.Unlock()
		return attendance.Ticket{}, attendance.ErrHandshakeInProgress
	}
	a.inFlight[m.Handle] = reservedToken
	a.mu.Unlock()

	holiday := a.checkHoliday(ctx)

	token, err := a.registry.Open(req.Kind, m.Handle, req.ChatID)
	if err != nil {
		a.release(m.Handle, reservedToken)
		return attendance.Ticket{}, fmt.Errorf("failed to open handshake: %w", err)
	}
	a.mu.Lock()
	a.inFlight[m.Handle] = token
	a.mu.Unlock()

	ticket := attendance.Ticket{
		Token:   token,
		URL:     strings.TrimRight(a.config.PublicBaseURL, "/") + "/gps/" + token,
		Handle:  m.Handle,
		Kind:    req.Kind,
		ChatID:  req.ChatID,
		Holiday: holiday,
	}

	text := fmt.Sprintf("Member: %s\nOpen this link to share your location for %s:\n%s\n\nThe %s is recorded automatically once your location arrives.",
		m.Name, req.Kind.Label(), ticket.URL, req.Kind.Label())
	if holiday {
		text = holidayNotice + "\n\n" + text
	}
	if err := a.notifier.NotifyNow(ctx, req.ChatID, text); err != nil {
		a.release(m.Handle, token)
		a.registry.Discard(token)
		return attendance.Ticket{}, fmt.Errorf("failed to send location link: %w", err)
	}

	slog.Info("Handshake opened", "handle", m.Handle, "kind", req.Kind)
	return ticket, nil
}

// checkHoliday is advisory only: a holiday or a failed lookup never blocks the clock action.
func (a *AttendanceServiceImpl) checkHoliday(ctx context.Context) bool {
	if a.holidays == nil {
		return false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.config.LookupTimeout)
	defer cancel()

	holiday, err := a.holidays.IsHoliday(lookupCtx, a.local(a.now()))
	if err != nil {
		slog.Warn("Holiday lookup failed, proceeding", "error", err)
		return false
	}
	return holiday
}

func (a *AttendanceServiceImpl) release(handle, token string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight[handle] == token {
		delete(a.inFlight, handle)
	}
}

// Await implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Await(ctx context.Context, ticket attendance.Ticket) (attendance.Outcome, error) {
	defer a.release(ticket.Handle, ticket.Token)

	payload, err := a.registry.Await(ctx, ticket.Token, a.config.HandshakeTimeout)
	if err != nil {
		if errors.Is(err, correlation.ErrTimeout) {
			slog.Info("Handshake timed out", "handle", ticket.Handle, "kind", ticket.Kind)
			a.notifier.Notify(ctx, ticket.ChatID, "Location request timed out, please try again.")
			return attendance.Outcome{}, attendance.ErrHandshakeTimeout
		}
		if errors.Is(err, context.Canceled) && a.stopCtx.Err() != nil {
			slog.Info("Handshake cancelled by shutdown", "handle", ticket.Handle, "kind", ticket.Kind)
			a.notifier.Notify(context.WithoutCancel(ctx), ticket.ChatID,
				"The service is restarting and your "+ticket.Kind.Label()+" was not recorded. Please try again in a minute.")
			return attendance.Outcome{}, attendance.ErrShuttingDown
		}
		return attendance.Outcome{}, err
	}

	return a.commit(ctx, ticket, payload)
}

func (a *AttendanceServiceImpl) commit(ctx context.Context, ticket attendance.Ticket, payload correlation.Payload) (attendance.Outcome, error) {
	m, err := a.directory.Get(ticket.Handle)
	if err != nil {
		return attendance.Outcome{}, err
	}

	at := a.local(payload.ReceivedAt)
	distance := utils.DistanceMeters(payload.Latitude, payload.Longitude, m.Latitude, m.Longitude)
	address := a.resolveAddress(ctx, payload.Latitude, payload.Longitude)
	status := a.punctuality(ticket.Kind, at)

	// The guard is checked again under the member lock; the marks may have
	// changed while the handshake was open (nightly reset).
	updated, err := a.directory.Update(ticket.Handle, func(m *member.Member) error {
		if ticket.Kind == attendance.KindIn {
			return m.Marks.MarkIn(at)
		}
		return m.Marks.MarkOut(at)
	})
	if err != nil {
		a.notifier.Notify(ctx, ticket.ChatID, "Could not record your "+ticket.Kind.Label()+": "+err.Error())
		return attendance.Outcome{}, err
	}

	record := attendance.Record{
		Handle:    updated.Handle,
		Name:      updated.Name,
		Date:      at.Format(dateLayout),
		Kind:      ticket.Kind,
		Timestamp: at,
		Address:   address,
		DistanceM: distance,
		Status:    status,
	}
	saved, err := a.AttendanceRepository.Append(ctx, record)
	if err != nil {
		slog.Error("Failed to append attendance record", "handle", record.Handle, "kind", record.Kind, "error", err)
		a.notifier.AlertOperator(ctx, fmt.Sprintf("Attendance log write failed for @%s (%s at %s): %v",
			record.Handle, record.Kind, at.Format(dateTimeLayout), err))
		saved = record
	}

	outcome := attendance.Outcome{
		Record:   saved,
		ClockIn:  timePtrToString(updated.Marks.ClockIn, a.config.Location),
		ClockOut: timePtrToString(updated.Marks.ClockOut, a.config.Location),
	}
	if ticket.Kind == attendance.KindOut {
		outcome.Summary = a.summarize(updated.Marks)
	}

	a.notifier.Notify(ctx, ticket.ChatID, a.formatOutcome(updated, outcome))

	slog.Info("Clock action recorded", "handle", record.Handle, "kind", record.Kind, "status", status, "distance_m", distance)
	return outcome, nil
}

func (a *AttendanceServiceImpl) resolveAddress(ctx context.Context, lat, lon float64) string {
	if a.geocoder == nil {
		return AddressUnavailable
	}

	lookupCtx, cancel := context.WithTimeout(ctx, a.config.LookupTimeout)
	defer cancel()

	address, err := a.geocoder.ResolveAddress(lookupCtx, lat, lon)
	if err != nil || address == "" {
		slog.Warn("Reverse geocoding failed", "error", err)
		return AddressUnavailable
	}
	return address
}

// punctuality labels a clock action against the local work hours.
func (a *AttendanceServiceImpl) punctuality(kind attendance.Kind, at time.Time) string {
	if kind == attendance.KindIn {
		if at.After(a.config.WorkHours.Start(at)) {
			return attendance.StatusLate
		}
		return attendance.StatusOnTime
	}
	if at.Before(a.config.WorkHours.End(at)) {
		return attendance.StatusEarlyLeave
	}
	return attendance.StatusOnTime
}

// summarize combines both marks of a day.
func (a *AttendanceServiceImpl) summarize(marks member.DailyMarks) string {
	if marks.ClockIn == nil || marks.ClockOut == nil {
		return attendance.SummaryMissingClockIn
	}
	in := a.local(*marks.ClockIn)
	out := a.local(*marks.ClockOut)

	late := in.After(a.config.WorkHours.Start(in))
	early := out.Before(a.config.WorkHours.End(out))

	switch {
	case late && early:
		return attendance.SummaryLateAndEarly
	case late:
		return attendance.SummaryLate
	case early:
		return attendance.SummaryEarlyLeave
	default:
		return attendance.SummaryOnTime
	}
}

func (a *AttendanceServiceImpl) formatOutcome(m member.Member, o attendance.Outcome) string {
	wh := a.config.WorkHours
	status := o.Record.Status
	switch status {
	case attendance.StatusLate:
		status = fmt.Sprintf("%s (expected by %02d:%02d)", status, wh.StartHour, wh.StartMinute)
	case attendance.StatusEarlyLeave:
		status = fmt.Sprintf("%s (expected from %02d:%02d)", status, wh.EndHour, wh.EndMinute)
	}

	lines := []string{
		strings.ToUpper(o.Record.Kind.Label()[:1]) + o.Record.Kind.Label()[1:] + " recorded!",
		fmt.Sprintf("Member: @%s (%s)", m.Handle, m.Name),
		"Location: " + o.Record.Address,
		fmt.Sprintf("Distance from registered location: about %d m", o.Record.DistanceM),
		"Time: " + a.local(o.Record.Timestamp).Format(dateTimeLayout),
		"Status: " + status,
	}
	if o.Record.Kind == attendance.KindOut {
		lines = append(lines, "Today: "+o.Summary)
		if o.ClockIn != nil {
			lines = append(lines, "In: "+*o.ClockIn)
		}
		if o.ClockOut != nil {
			lines = append(lines, "Out: "+*o.ClockOut)
		}
	}
	return strings.Join(lines, "\n")
}

// Request implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Request(ctx context.Context, req attendance.ClockRequest) (attendance.Ticket, error) {
	ticket, err := a.Begin(ctx, req)
	if err != nil {
		return attendance.Ticket{}, err
	}

	a.mu.Lock()
	if a.stopCtx.Err() != nil {
		a.mu.Unlock()
		a.release(ticket.Handle, ticket.Token)
		a.registry.Discard(ticket.Token)
		return attendance.Ticket{}, attendance.ErrShuttingDown
	}
	a.wg.Add(1)
	a.mu.Unlock()

	// Detached from the chat update's context, which ends before the handshake
	// does; only Shutdown cancels it.
	awaitCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	unwatch := context.AfterFunc(a.stopCtx, cancel)
	go func() {
		defer a.wg.Done()
		defer unwatch()
		defer cancel()
		_, err := a.Await(awaitCtx, ticket)
		if err != nil && !errors.Is(err, attendance.ErrHandshakeTimeout) && !errors.Is(err, attendance.ErrShuttingDown) {
			slog.Warn("Clock action not recorded", "handle", ticket.Handle, "kind", ticket.Kind, "error", err)
		}
	}()

	return ticket, nil
}

// Report implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Report(ctx context.Context, req attendance.HandshakeReport) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, err
	}

	accepted := a.registry.Report(req.Token, correlation.Payload{
		Latitude:   *req.Latitude,
		Longitude:  *req.Longitude,
		ReceivedAt: a.now(),
	})
	return accepted, nil
}

// RestoreToday implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) RestoreToday(ctx context.Context) error {
	today := a.local(a.now()).Format(dateLayout)

	records, err := a.AttendanceRepository.ListByDate(ctx, today)
	if err != nil {
		return fmt.Errorf("failed to read today's attendance: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Timestamp.Before(records[j].Timestamp) })

	restored := 0
	for _, r := range records {
		state := member.StateIn
		if r.Kind == attendance.KindOut {
			state = member.StateOut
		}
		if err := a.directory.ReplayMark(r.Handle, state, r.Timestamp); err != nil {
			slog.Warn("Skipping attendance record during restore", "handle", r.Handle, "kind", r.Kind, "error", err)
			continue
		}
		restored++
	}

	slog.Info("Today's attendance restored", "date", today, "records", restored)
	return nil
}

// Wait implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Wait() {
	a.wg.Wait()
}

// Shutdown implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	a.stop()
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("open location checks still running: %w", ctx.Err())
	}
}

func NewAttendanceService(
	directory member.Directory,
	registry correlation.Registry,
	attendanceRepo attendance.AttendanceRepository,
	notifier notification.Service,
	geocoder attendance.Geocoder,
	holidays attendance.HolidayChecker,
	cfg Config,
) attendance.AttendanceService {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 60 * time.Second
	}
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 10 * time.Second
	}
	stopCtx, stop := context.WithCancel(context.Background())
	return &AttendanceServiceImpl{
		stopCtx:              stopCtx,
		stop:                 stop,
		directory:            directory,
		registry:             registry,
		AttendanceRepository: attendanceRepo,
		notifier:             notifier,
		geocoder:             geocoder,
		holidays:             holidays,
		config:               cfg,
		now:                  time.Now,
		inFlight:             make(map[string]string),
	}
}
