package pipeline

// DefaultBPMCapacity is the number of BPM samples the rolling average spans.
const DefaultBPMCapacity = 10

// BPMHistory is a bounded circular buffer of recent BPM measurements. It is
// owned by a single goroutine; the producer records into its own instance
// and snapshots the average into each Event, and the consumer keeps a
// separate instance fed from drained events for the final summary. The
// structure itself is never shared across threads.
type BPMHistory struct {
	values []float32
	head   int
	count  int
}

// NewBPMHistory returns a history holding the last capacity measurements.
func NewBPMHistory(capacity int) *BPMHistory {
	if capacity <= 0 {
		capacity = DefaultBPMCapacity
	}
	return &BPMHistory{values: make([]float32, capacity)}
}

// Record inserts a measurement, overwriting the oldest once full. O(1).
func (h *BPMHistory) Record(v float32) {
	h.values[h.head] = v
	h.head = (h.head + 1) % len(h.values)
	if h.count < len(h.values) {
		h.count++
	}
}

// Average returns the arithmetic mean of the currently held values, 0 when
// empty.
func (h *BPMHistory) Average() float32 {
	if h.count == 0 {
		return 0
	}
	var sum float64
	capacity := len(h.values)
	first := (h.head + capacity - h.count) % capacity
	for i := range h.count {
		sum += float64(h.values[(first+i)%capacity])
	}
	return float32(sum / float64(h.count))
}

// Count returns how many measurements are currently held.
func (h *BPMHistory) Count() int {
	return h.count
}
