package audio

import (
	"sync"

	"github.com/smallnest/ringbuffer"

	"github.com/pulseline/pulseline-go/internal/conf"
	"github.com/pulseline/pulseline-go/internal/errors"
)

// CaptureBuffer keeps the most recent stretch of raw PCM so a clip around a
// detection can be exported after the fact. Writes discard the oldest data
// when full and never block. The buffer sits off the analysis path; it is
// only wired in when clip export is enabled.
type CaptureBuffer struct {
	mu  sync.Mutex
	rb  *ringbuffer.RingBuffer
	cap int
}

// NewCaptureBuffer returns a buffer holding the last `seconds` of capture.
func NewCaptureBuffer(seconds int) (*CaptureBuffer, error) {
	if seconds <= 0 {
		return nil, errors.Newf("invalid capture buffer length: %d seconds", seconds).
			Component("audio").
			Category(errors.CategoryValidation).
			Build()
	}

	capacity := seconds * conf.SampleRate * conf.NumChannels * (conf.BitDepth / 8)
	rb := ringbuffer.New(capacity)
	if rb == nil {
		return nil, errors.Newf("failed to allocate capture ring buffer").
			Component("audio").
			Category(errors.CategoryResource).
			Context("capacity", capacity).
			Build()
	}

	return &CaptureBuffer{rb: rb, cap: capacity}, nil
}

// Write appends PCM data, discarding the oldest bytes if there is not
// enough free space. Writes larger than the whole buffer keep only the tail.
func (cb *CaptureBuffer) Write(data []byte) {
	if len(data) > cb.cap {
		data = data[len(data)-cb.cap:]
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if free := cb.rb.Free(); free < len(data) {
		discard := make([]byte, len(data)-free)
		_, _ = cb.rb.Read(discard)
	}
	_, _ = cb.rb.Write(data)
}

// Snapshot copies out the currently buffered PCM without consuming it.
func (cb *CaptureBuffer) Snapshot() []byte {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	length := cb.rb.Length()
	if length == 0 {
		return nil
	}
	data := make([]byte, length)
	n, _ := cb.rb.Read(data)
	data = data[:n]
	// Put the data back so later snapshots still see it
	_, _ = cb.rb.Write(data)
	return data
}

// Len returns the number of buffered bytes.
func (cb *CaptureBuffer) Len() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.rb.Length()
}
