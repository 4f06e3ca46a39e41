package audio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureBufferRejectsInvalidLength(t *testing.T) {
	t.Parallel()

	_, err := NewCaptureBuffer(0)
	assert.Error(t, err)

	_, err = NewCaptureBuffer(-1)
	assert.Error(t, err)
}

func TestCaptureBufferRoundTrip(t *testing.T) {
	t.Parallel()

	cb, err := NewCaptureBuffer(1)
	require.NoError(t, err)

	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	cb.Write(payload)

	assert.Equal(t, len(payload), cb.Len())
	assert.Equal(t, payload, cb.Snapshot())

	// Snapshots do not consume the buffered data.
	assert.Equal(t, payload, cb.Snapshot())
	assert.Equal(t, len(payload), cb.Len())
}

func TestCaptureBufferDiscardsOldestWhenFull(t *testing.T) {
	t.Parallel()

	cb, err := NewCaptureBuffer(1)
	require.NoError(t, err)
	capacity := cb.cap

	cb.Write(bytes.Repeat([]byte{0xAA}, capacity))
	cb.Write([]byte{1, 2, 3, 4})

	assert.Equal(t, capacity, cb.Len())

	snap := cb.Snapshot()
	require.Len(t, snap, capacity)
	assert.Equal(t, []byte{1, 2, 3, 4}, snap[capacity-4:])
	assert.Equal(t, byte(0xAA), snap[0])
}

func TestCaptureBufferOversizeWriteKeepsTail(t *testing.T) {
	t.Parallel()

	cb, err := NewCaptureBuffer(1)
	require.NoError(t, err)
	capacity := cb.cap

	big := make([]byte, capacity+100)
	for i := range big {
		big[i] = byte(i % 251)
	}
	cb.Write(big)

	snap := cb.Snapshot()
	require.Len(t, snap, capacity)
	assert.Equal(t, big[len(big)-capacity:], snap)
}
