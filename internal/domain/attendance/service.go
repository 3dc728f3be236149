package attendance

import (
	"context"
	"time"
)

// AttendanceService drives the per-member clock-in/clock-out workflow.
type AttendanceService interface {
	// Begin validates the guards, opens a location handshake and sends its
	// link to the requester.
	Begin(ctx context.Context, req ClockRequest) (Ticket, error)

	// Await blocks until the handshake resolves or times out, then commits
	// the clock action.
	Await(ctx context.Context, ticket Ticket) (Outcome, error)

	// Request runs Begin and completes the workflow in the background.
	Request(ctx context.Context, req ClockRequest) (Ticket, error)

	// Report is the entry point of the location page.
	Report(ctx context.Context, req HandshakeReport) (bool, error)

	// RestoreToday rebuilds today's marks from the attendance log.
	RestoreToday(ctx context.Context) error

	// Wait blocks until every background workflow has finished.
	Wait()

	// Shutdown stops accepting clock requests, cancels open handshakes with a
	// notice to their requesters and waits for the background workflows.
	Shutdown(ctx context.Context) error
}

// ReportService builds the supervisor reports from the attendance log.
type ReportService interface {
	Today(ctx context.Context, handle string) (DayReport, error)
	Month(ctx context.Context, month string, handle string) (MonthReport, error)
}

// Geocoder resolves an address label for coordinates.
type Geocoder interface {
	ResolveAddress(ctx context.Context, lat, lon float64) (string, error)
}

// HolidayChecker tells whether a date is a public holiday.
type HolidayChecker interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, error)
}
