package attendance

import (
	"strings"

	"github.com/cmlabs-hris/attendance-bot/internal/pkg/validator"
)

// ClockRequest is a member's request to start a clock-in or clock-out.
type ClockRequest struct {
	Handle string
	Kind   Kind
	ChatID int64
}

func (r *ClockRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.Handle) {
		errs = append(errs, validator.ValidationError{
			Field:   "handle",
			Message: "handle is required",
		})
	}
	if !r.Kind.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "kind",
			Message: "kind must be in or out",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Ticket is returned when a handshake was opened for a clock request.
type Ticket struct {
	Token   string
	URL     string
	Handle  string
	Kind    Kind
	ChatID  int64
	Holiday bool
}

// HandshakeReport is the payload the location page posts back.
type HandshakeReport struct {
	Token     string   `json:"token"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (r *HandshakeReport) Validate() error {
	var errs validator.ValidationErrors

	r.Token = strings.TrimSpace(r.Token)
	if validator.IsEmpty(r.Token) {
		errs = append(errs, validator.ValidationError{
			Field:   "token",
			Message: "token is required",
		})
	}

	if r.Latitude == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude is required",
		})
	} else if !validator.IsValidLatitude(*r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}

	if r.Longitude == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude is required",
		})
	} else if !validator.IsValidLongitude(*r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Outcome describes a completed clock action.
type Outcome struct {
	Record   Record
	Summary  string
	ClockIn  *string
	ClockOut *string
}

// DayRow is one member line of the daily report.
type DayRow struct {
	Handle   string `json:"handle"`
	Name     string `json:"name"`
	ClockIn  string `json:"clock_in"`
	ClockOut string `json:"clock_out"`
}

// DayReport lists every member with a record on a date.
type DayReport struct {
	Date string   `json:"date"`
	Rows []DayRow `json:"rows"`
}

// MonthDay is one day of a member in the month report.
type MonthDay struct {
	Day      string `json:"day"`
	ClockIn  string `json:"clock_in"`
	ClockOut string `json:"clock_out"`
}

// MonthMember groups one member's days in a month report.
type MonthMember struct {
	Handle string     `json:"handle"`
	Name   string     `json:"name"`
	Days   []MonthDay `json:"days"`
}

type MonthReport struct {
	Month   string        `json:"month"`
	Members []MonthMember `json:"members"`
}
