package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcast(t *testing.T) {
	hub := NewHub()

	eve, cleanupEve := hub.Subscribe("eve")
	defer cleanupEve()
	frank, cleanupFrank := hub.Subscribe("frank")
	defer cleanupFrank()

	assert.Equal(t, 2, hub.TotalSubscribers())

	hub.Broadcast(Event{Event: "leave_request", Data: "leave_dave_1"})

	got := <-eve
	assert.Equal(t, "eve", got.SubscriberID)
	assert.Equal(t, "leave_request", got.Event)

	got = <-frank
	assert.Equal(t, "frank", got.SubscriberID)
}

func TestHubPublishSingle(t *testing.T) {
	hub := NewHub()

	eve, cleanupEve := hub.Subscribe("eve")
	defer cleanupEve()
	frank, cleanupFrank := hub.Subscribe("frank")
	defer cleanupFrank()

	hub.Publish("eve", Event{Event: "ping"})

	require.Len(t, eve, 1)
	assert.Len(t, frank, 0)
}

func TestHubCleanup(t *testing.T) {
	hub := NewHub()

	ch, cleanup := hub.Subscribe("eve")
	assert.Equal(t, 1, hub.SubscriberCount("eve"))

	cleanup()
	cleanup()

	assert.Equal(t, 0, hub.SubscriberCount("eve"))
	_, open := <-ch
	assert.False(t, open)

	// Publishing after cleanup must not panic on the closed channel.
	hub.Broadcast(Event{Event: "ping"})
}

func TestHubDropsWhenFull(t *testing.T) {
	hub := NewHub()

	ch, cleanup := hub.Subscribe("eve")
	defer cleanup()

	for i := 0; i < 20; i++ {
		hub.Publish("eve", Event{Event: "ping"})
	}
	assert.Len(t, ch, 10)
}
