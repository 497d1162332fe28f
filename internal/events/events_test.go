package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	err := bus.PublishJSON(EventBookingCreated, BookingEventPayload{BookingID: 12, RoomID: 3})
	require.NoError(t, err)

	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, EventBookingCreated, received.Type)
	assert.False(t, received.CreatedAt.IsZero())

	var decoded BookingEventPayload
	require.NoError(t, json.Unmarshal(received.Payload, &decoded))
	assert.Equal(t, int64(12), decoded.BookingID)
	assert.Equal(t, int64(3), decoded.RoomID)
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var order []int

	bus.Subscribe("event", func(_ *Event) error { order = append(order, 1); return nil })
	bus.Subscribe("event", func(_ *Event) error { order = append(order, 2); return nil })

	bus.Publish(&Event{Type: "event"})

	assert.Equal(t, []int{1, 2}, order)
}

func TestEventBusErrorHook(t *testing.T) {
	bus := NewEventBus()
	var hookErr error
	var ran bool

	bus.OnError(func(_ *Event, err error) { hookErr = err })
	bus.Subscribe("event", func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe("event", func(_ *Event) error { ran = true; return nil })

	bus.Publish(&Event{Type: "event"})

	assert.EqualError(t, hookErr, "boom")
	assert.True(t, ran)
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	assert.NotPanics(t, func() { bus.Publish(&Event{Type: "unknown"}) })
	assert.NoError(t, bus.PublishJSON("unknown", nil))

	var nilBus *EventBus
	assert.NoError(t, nilBus.PublishJSON(EventBookingCreated, nil))
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	bus := NewEventBus()
	for _, eventType := range BookingEvents {
		bus.Subscribe(eventType, AuditLogger(&logger))
	}

	start := time.Date(2024, 10, 25, 10, 0, 0, 0, time.UTC)
	require.NoError(t, bus.PublishJSON(EventBookingCancelled, BookingEventPayload{
		BookingID: 5,
		RoomID:    1,
		UserID:    2,
		Status:    "cancelled",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		ChangedBy: 2,
	}))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, EventBookingCancelled, entry["event"])
	assert.Equal(t, float64(5), entry["booking_id"])
	assert.Equal(t, "cancelled", entry["status"])
}
