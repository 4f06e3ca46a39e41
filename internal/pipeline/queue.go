package pipeline

import (
	"sync/atomic"
)

// DefaultQueueCapacity is the event ring size used by the pipeline.
const DefaultQueueCapacity = 1024

// EventQueue is a lock-free single-producer/single-consumer ring buffer
// moving detection events from the real-time capture callback into the run
// loop. Exactly one goroutine may push and exactly one may drain.
//
// Two cursors index a fixed slot array modulo its capacity; one slot stays
// reserved so head==tail always means empty. The producer never blocks: on
// a full ring it advances the tail first, dropping the oldest unread event.
// Retained events always drain in production order.
type EventQueue struct {
	slots    []Event
	capacity uint64
	head     atomic.Uint64 // producer-owned write cursor
	tail     atomic.Uint64 // consumer-owned read cursor
	dropped  atomic.Uint64
	wake     chan struct{}
}

// NewEventQueue returns a queue able to hold capacity-1 events. Capacity
// must be at least 2.
func NewEventQueue(capacity int) *EventQueue {
	if capacity < 2 {
		capacity = 2
	}
	return &EventQueue{
		slots:    make([]Event, capacity),
		capacity: uint64(capacity),
		wake:     make(chan struct{}, 1),
	}
}

// TryPush stores an event and publishes it to the consumer. Producer-only.
// It never blocks, locks or allocates. On a full ring the oldest unread
// event is dropped first; TryPush then reports false so callers can observe
// the displacement, but the new event is always stored.
func (q *EventQueue) TryPush(ev Event) bool {
	head := q.head.Load()
	next := (head + 1) % q.capacity

	pushed := true
	if next == q.tail.Load() {
		// Full: drop the oldest. The CAS loses only when the consumer
		// advanced tail concurrently, in which case a slot just freed up.
		tail := q.tail.Load()
		if q.tail.CompareAndSwap(tail, (tail+1)%q.capacity) {
			q.dropped.Add(1)
		}
		pushed = false
	}

	q.slots[head] = ev
	q.head.Store(next)

	// Coalescing wake: a pending notification covers this push too.
	select {
	case q.wake <- struct{}{}:
	default:
	}

	return pushed
}

// DrainAll removes and returns all currently published events in FIFO
// order. Consumer-only. A wake may cover several pushes, so callers run
// DrainAll per wake rather than assuming one event per notification.
func (q *EventQueue) DrainAll() []Event {
	var out []Event
	for {
		tail := q.tail.Load()
		if tail == q.head.Load() {
			return out
		}
		ev := q.slots[tail]
		// An overflow drop can move tail between the read above and here;
		// the CAS discards the stale copy and retries on the next slot.
		if !q.tail.CompareAndSwap(tail, (tail+1)%q.capacity) {
			continue
		}
		out = append(out, ev)
	}
}

// Wake returns the notification channel the producer signals after each
// push. The channel has capacity one; notifications coalesce.
func (q *EventQueue) Wake() <-chan struct{} {
	return q.wake
}

// Dropped returns how many events have been displaced by overflow.
func (q *EventQueue) Dropped() uint64 {
	return q.dropped.Load()
}

// Len returns the number of published, undrained events. Consumer-side
// diagnostic; the value is stale as soon as it is read.
func (q *EventQueue) Len() int {
	head := q.head.Load()
	tail := q.tail.Load()
	return int((head + q.capacity - tail) % q.capacity)
}
