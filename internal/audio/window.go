package audio

import (
	"encoding/binary"
	"iter"
	"math"

	"github.com/pulseline/pulseline-go/internal/conf"
)

// SampleFormat identifies the PCM encoding of a raw capture buffer.
type SampleFormat int

const (
	FormatS16LE SampleFormat = iota // signed 16-bit little-endian
	FormatF32LE                     // 32-bit float little-endian
)

// bytesPerSample returns the sample stride for the format, 0 if unknown.
func (f SampleFormat) bytesPerSample() int {
	switch f {
	case FormatS16LE:
		return 2
	case FormatF32LE:
		return 4
	default:
		return 0
	}
}

// RawCapture describes one backend-supplied buffer. The data is owned by the
// backend and is only valid for the duration of a single Process callback.
type RawCapture struct {
	Data     []byte       // interleaved PCM samples
	Frames   int          // number of sample frames in Data
	Channels int          // channels per frame
	Format   SampleFormat // PCM encoding of Data
}

// ValidationError reports a malformed raw capture buffer. Values are
// preallocated so the producer path never allocates when rejecting input.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

const (
	ErrNilBuffer      = ValidationError("raw capture buffer is nil")
	ErrEmptyCapture   = ValidationError("raw capture has no frames")
	ErrBadFormat      = ValidationError("unsupported sample format")
	ErrBadChannels    = ValidationError("unsupported channel count")
	ErrStrideMismatch = ValidationError("frame count does not match buffer length")
	ErrWindowSize     = ValidationError("window size out of range")
)

// WindowAdapter slices raw capture buffers into fixed-length analysis
// windows. The scratch buffer is owned by the adapter and reused across
// invocations; it is the only analysis-side allocation and grows at most a
// handful of times before reaching steady state.
type WindowAdapter struct {
	size    int
	scratch []float32
}

// NewWindowAdapter returns an adapter producing windows of the given sample
// length. The length must be within the configured window size bounds.
func NewWindowAdapter(size int) (*WindowAdapter, error) {
	if size < conf.MinWindowSize || size > conf.MaxWindowSize {
		return nil, ErrWindowSize
	}
	return &WindowAdapter{
		size:    size,
		scratch: make([]float32, 0, 8192),
	}, nil
}

// Size returns the window length in samples.
func (a *WindowAdapter) Size() int { return a.size }

// Validate checks a raw capture descriptor. A non-nil result means the
// buffer must be skipped for this invocation; the caller keeps running.
func Validate(rc *RawCapture) error {
	if rc == nil || rc.Data == nil {
		return ErrNilBuffer
	}
	if rc.Frames <= 0 {
		return ErrEmptyCapture
	}
	if rc.Channels != conf.NumChannels {
		return ErrBadChannels
	}
	stride := rc.Format.bytesPerSample()
	if stride == 0 {
		return ErrBadFormat
	}
	if rc.Frames*rc.Channels*stride != len(rc.Data) {
		return ErrStrideMismatch
	}
	return nil
}

// Convert validates the capture and decodes its PCM data into the adapter's
// scratch buffer, returning the samples as float32 in [-1, 1]. The returned
// slice is invalidated by the next Convert call.
func (a *WindowAdapter) Convert(rc *RawCapture) ([]float32, error) {
	if err := Validate(rc); err != nil {
		return nil, err
	}

	n := rc.Frames * rc.Channels
	if cap(a.scratch) < n {
		a.scratch = make([]float32, 0, n)
	}
	out := a.scratch[:n]

	switch rc.Format {
	case FormatS16LE:
		for i := range n {
			s := int16(binary.LittleEndian.Uint16(rc.Data[i*2:]))
			out[i] = float32(s) / 32768.0
		}
	case FormatF32LE:
		for i := range n {
			bits := binary.LittleEndian.Uint32(rc.Data[i*4:])
			out[i] = math.Float32frombits(bits)
		}
	}

	return out, nil
}

// Windows lazily yields floor(len(samples)/size) consecutive windows of
// exactly size samples each. The yielded slices are views into samples and
// must not be retained past the iteration step. Trailing samples shorter
// than one window are dropped; nothing carries over to the next capture.
func (a *WindowAdapter) Windows(samples []float32) iter.Seq[[]float32] {
	return func(yield func([]float32) bool) {
		for off := 0; off+a.size <= len(samples); off += a.size {
			if !yield(samples[off : off+a.size : off+a.size]) {
				return
			}
		}
	}
}

// WindowCount returns the number of windows Windows will yield for a buffer
// of the given sample count.
func (a *WindowAdapter) WindowCount(sampleCount int) int {
	if sampleCount < a.size {
		return 0
	}
	return sampleCount / a.size
}
