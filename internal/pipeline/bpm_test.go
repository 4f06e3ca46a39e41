package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBPMHistoryAverage(t *testing.T) {
	t.Parallel()

	h := NewBPMHistory(DefaultBPMCapacity)
	for _, v := range []float32{120, 122, 118} {
		h.Record(v)
	}

	assert.Equal(t, 3, h.Count())
	assert.InDelta(t, 120.0, h.Average(), 1e-4)
}

func TestBPMHistoryEmptyAverageIsZero(t *testing.T) {
	t.Parallel()

	h := NewBPMHistory(DefaultBPMCapacity)
	assert.Equal(t, 0, h.Count())
	assert.Equal(t, float32(0), h.Average())
}

func TestBPMHistoryEvictsOldest(t *testing.T) {
	t.Parallel()

	h := NewBPMHistory(DefaultBPMCapacity)

	// One outlier followed by a full window of steady tempo. Once the
	// window turns over, the outlier no longer influences the average.
	h.Record(40)
	for range DefaultBPMCapacity {
		h.Record(120)
	}

	assert.Equal(t, DefaultBPMCapacity, h.Count())
	assert.InDelta(t, 120.0, h.Average(), 1e-4)
}

func TestBPMHistoryPartialWindow(t *testing.T) {
	t.Parallel()

	h := NewBPMHistory(4)
	h.Record(100)
	h.Record(110)

	assert.Equal(t, 2, h.Count())
	assert.InDelta(t, 105.0, h.Average(), 1e-4)
}
