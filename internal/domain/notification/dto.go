package notification

import (
	"time"
)

// EventResponse is the JSON form of an Event on the SSE stream
type EventResponse struct {
	ID        string                 `json:"id"`
	Type      NotificationType       `json:"type"`
	Text      string                 `json:"text"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func ToEventResponse(e Event) EventResponse {
	return EventResponse{
		ID:        e.ID,
		Type:      e.Type,
		Text:      e.Text,
		Data:      e.Data,
		CreatedAt: e.CreatedAt,
	}
}

// SSETokenResponse represents the SSE token response
type SSETokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
