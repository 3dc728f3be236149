package attendance

import (
	"time"
)

// Kind is the direction of a clock action.
type Kind string

const (
	KindIn  Kind = "in"
	KindOut Kind = "out"
)

func (k Kind) Valid() bool {
	return k == KindIn || k == KindOut
}

func (k Kind) Label() string {
	if k == KindOut {
		return "clock-out"
	}
	return "clock-in"
}

// Record is one immutable row of the attendance log.
type Record struct {
	ID        string
	Handle    string
	Name      string
	Date      string // YYYY-MM-DD in the organization timezone
	Kind      Kind
	Timestamp time.Time
	Address   string
	DistanceM int
	Status    string
	CreatedAt time.Time
}

// Punctuality labels
const (
	StatusOnTime     = "on time"
	StatusLate       = "late"
	StatusEarlyLeave = "early leave"
)

// Daily summary labels computed on clock-out
const (
	SummaryOnTime         = "on time"
	SummaryLate           = "late"
	SummaryEarlyLeave     = "early leave"
	SummaryLateAndEarly   = "late and early leave"
	SummaryMissingClockIn = "no clock-in recorded today"
)

// Coordinates is a reported device position.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// WorkHours are the configured local work-start/work-end bounds.
type WorkHours struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// Start returns the work start on the day of t, in t's location.
func (w WorkHours) Start(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), w.StartHour, w.StartMinute, 0, 0, t.Location())
}

func (w WorkHours) End(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), w.EndHour, w.EndMinute, 0, 0, t.Location())
}
