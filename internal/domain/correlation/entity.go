package correlation

import (
	"time"

	"github.com/cmlabs-hris/attendance-bot/internal/domain/attendance"
)

// Payload is what the location page reports for a token.
type Payload struct {
	Latitude   float64
	Longitude  float64
	ReceivedAt time.Time
}

// Session is a pending cross-channel handshake.
type Session struct {
	Token     string
	Kind      attendance.Kind
	Handle    string
	ChatID    int64
	CreatedAt time.Time
	Payload   *Payload
	Resolved  bool
}
