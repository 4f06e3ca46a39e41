package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventQueueDrainsInProductionOrder(t *testing.T) {
	t.Parallel()

	q := NewEventQueue(8)
	for i := range 5 {
		assert.True(t, q.TryPush(Event{BPM: float32(i)}))
	}
	assert.Equal(t, 5, q.Len())

	events := q.DrainAll()
	require.Len(t, events, 5)
	for i, ev := range events {
		assert.Equal(t, float32(i), ev.BPM)
	}
	assert.Equal(t, 0, q.Len())
	assert.Empty(t, q.DrainAll())
}

func TestEventQueueOverflowDropsOldest(t *testing.T) {
	t.Parallel()

	// Capacity 4 leaves 3 usable slots. Pushing six events must displace
	// the three oldest and retain the three newest, in order.
	q := NewEventQueue(4)
	for i := range 6 {
		ok := q.TryPush(Event{BPM: float32(i)})
		if i < 3 {
			assert.True(t, ok, "push %d should not displace", i)
		} else {
			assert.False(t, ok, "push %d should report displacement", i)
		}
	}

	events := q.DrainAll()
	require.Len(t, events, 3)
	assert.Equal(t, float32(3), events[0].BPM)
	assert.Equal(t, float32(4), events[1].BPM)
	assert.Equal(t, float32(5), events[2].BPM)
	assert.Equal(t, uint64(3), q.Dropped())
}

func TestEventQueueWakeCoalesces(t *testing.T) {
	t.Parallel()

	q := NewEventQueue(8)
	q.TryPush(Event{BPM: 1})
	q.TryPush(Event{BPM: 2})
	q.TryPush(Event{BPM: 3})

	// Three pushes produce a single pending notification covering all of
	// them; the drain after one wake must see every event.
	select {
	case <-q.Wake():
	case <-time.After(time.Second):
		t.Fatal("expected a wake notification")
	}
	assert.Len(t, q.DrainAll(), 3)

	select {
	case <-q.Wake():
		t.Fatal("unexpected second wake notification")
	default:
	}
}

func TestEventQueueMinimumCapacity(t *testing.T) {
	t.Parallel()

	q := NewEventQueue(0)
	assert.True(t, q.TryPush(Event{BPM: 42}))

	events := q.DrainAll()
	require.Len(t, events, 1)
	assert.Equal(t, float32(42), events[0].BPM)
}

func TestEventQueueConcurrentProducerConsumer(t *testing.T) {
	t.Parallel()

	const total = 5000

	// Large enough that the consumer never falls a full ring behind; the
	// drop path is exercised separately under single-threaded control.
	q := NewEventQueue(2 * total)

	go func() {
		for i := range total {
			q.TryPush(Event{BPM: float32(i)})
		}
	}()

	var got []Event
	deadline := time.After(5 * time.Second)
	for len(got) < total {
		select {
		case <-q.Wake():
			got = append(got, q.DrainAll()...)
		case <-deadline:
			t.Fatalf("timed out with %d of %d events", len(got), total)
		}
	}

	require.Len(t, got, total)
	for i, ev := range got {
		require.Equal(t, float32(i), ev.BPM)
	}
	assert.Equal(t, uint64(0), q.Dropped())
}
