package sse

import (
	"sync"
)

// Event represents an SSE event to be sent to subscribers
type Event struct {
	SubscriberID string
	Event        string
	Data         interface{}
}

// Hub manages SSE subscribers and event broadcasting
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

// NewHub creates a new SSE Hub instance
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber and returns the event channel and cleanup function
func (h *Hub) Subscribe(subscriberID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)

	if h.subscribers[subscriberID] == nil {
		h.subscribers[subscriberID] = make(map[chan Event]struct{})
	}
	h.subscribers[subscriberID][ch] = struct{}{}

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subscribers[subscriberID], ch)
			close(ch)
			if len(h.subscribers[subscriberID]) == 0 {
				delete(h.subscribers, subscriberID)
			}
		})
	}

	return ch, cleanup
}

// Publish sends an event to all connections of one subscriber
func (h *Hub) Publish(subscriberID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	h.publishLocked(subscriberID, event)
}

// Broadcast sends an event to every subscriber
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for subscriberID := range h.subscribers {
		h.publishLocked(subscriberID, event)
	}
}

func (h *Hub) publishLocked(subscriberID string, event Event) {
	event.SubscriberID = subscriberID
	for ch := range h.subscribers[subscriberID] {
		select {
		case ch <- event:
		default:
			// Slow subscriber, drop rather than block publishers
		}
	}
}

// SubscriberCount returns the number of active connections for a subscriber
func (h *Hub) SubscriberCount(subscriberID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[subscriberID])
}

// TotalSubscribers returns the total number of active connections
func (h *Hub) TotalSubscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, subs := range h.subscribers {
		total += len(subs)
	}
	return total
}
