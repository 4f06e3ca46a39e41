package audio

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/pulseline/pulseline-go/internal/conf"
	"github.com/pulseline/pulseline-go/internal/errors"
)

// fileChunkFrames is how many frames a FileBackend delivers per Process
// invocation, mimicking a live capture cadence.
const fileChunkFrames = 4096

// pcmReader decodes an audio file into S16LE mono chunks. next returns the
// following chunk and its frame count, io.EOF once the file is drained.
type pcmReader interface {
	sampleRate() int
	next() ([]byte, int, error)
}

// newPCMReader picks a decoder for the file based on its extension.
func newPCMReader(file *os.File, path string) (pcmReader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return newWAVReader(file, path)
	case ".flac":
		return newFLACReader(file, path)
	default:
		return nil, errors.Newf("unsupported audio file format: %s", path).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}
}

// FileBackend drives the capture hooks from a WAV or FLAC file instead of a
// live device. It fires Drained once the whole file has been delivered, so
// the pipeline can shut down gracefully after offline analysis.
type FileBackend struct {
	path      string
	hooks     CaptureHooks
	file      *os.File
	reader    pcmReader
	started   bool
	stopping  atomic.Bool
	pauseOnce sync.Once
	done      chan struct{}
}

// NewFileBackend returns a backend reading from the given audio file.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path, done: make(chan struct{})}
}

// SampleRate returns the file's sample rate, valid after Open.
func (b *FileBackend) SampleRate() int {
	if b.reader == nil {
		return 0
	}
	return b.reader.sampleRate()
}

// Open validates the audio file and registers the hooks.
func (b *FileBackend) Open(hooks CaptureHooks) error {
	b.hooks = hooks

	file, err := os.Open(b.path)
	if err != nil {
		return errors.New(err).
			Component("audio").
			Category(errors.CategoryFileIO).
			Context("path", b.path).
			Build()
	}

	reader, err := newPCMReader(file, b.path)
	if err != nil {
		file.Close()
		return err
	}

	b.file = file
	b.reader = reader
	return nil
}

// Start delivers the file contents through the Process hook on a background
// goroutine, then fires Drained.
func (b *FileBackend) Start() error {
	if b.reader == nil {
		return errors.Newf("file backend not opened").
			Component("audio").
			Category(errors.CategoryState).
			Build()
	}

	b.started = true
	go b.deliver()
	return nil
}

func (b *FileBackend) deliver() {
	defer close(b.done)

	if b.hooks.Ready != nil {
		b.hooks.Ready()
	}

	var rc RawCapture

	for !b.stopping.Load() {
		pcm, frames, err := b.reader.next()
		if err == io.EOF {
			if b.hooks.Drained != nil {
				b.hooks.Drained()
			}
			return
		}
		if err != nil {
			if b.hooks.Error != nil {
				b.hooks.Error(errors.New(err).
					Component("audio").
					Category(errors.CategoryFileIO).
					Context("path", b.path).
					Build())
			}
			return
		}

		if b.hooks.Process != nil {
			rc.Data = pcm
			rc.Frames = frames
			rc.Channels = conf.NumChannels
			rc.Format = FormatS16LE
			b.hooks.Process(&rc)
		}
	}
}

// Deactivate stops delivery. Paused fires exactly once, after the reader
// goroutine has finished, matching the live backend's guarantee that no
// Process invocation follows it.
func (b *FileBackend) Deactivate() {
	b.stopping.Store(true)
	if !b.started {
		return
	}
	b.pauseOnce.Do(func() {
		go func() {
			<-b.done
			if b.hooks.Paused != nil {
				b.hooks.Paused()
			}
		}()
	})
}

// Close waits for delivery to finish and releases the file.
func (b *FileBackend) Close() {
	b.stopping.Store(true)
	if b.started {
		<-b.done
	}
	if b.file != nil {
		b.file.Close()
		b.file = nil
	}
	b.reader = nil
}

// ProbeSampleRate reads just enough of the file header to report its sample
// rate, so a detector can be tuned before the backend opens the file.
func ProbeSampleRate(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.New(err).
			Component("audio").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	reader, err := newPCMReader(f, path)
	if err != nil {
		return 0, err
	}
	return reader.sampleRate(), nil
}

// wavReader decodes 16-bit mono WAV through go-audio/wav.
type wavReader struct {
	decoder *wav.Decoder
	buf     *audio.IntBuffer
	pcm     []byte
}

func newWAVReader(file *os.File, path string) (*wavReader, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, errors.Newf("input is not a valid WAV audio file: %s", path).
			Component("audio").
			Category(errors.CategoryValidation).
			Build()
	}

	if decoder.BitDepth != 16 {
		return nil, errors.Newf("unsupported bit depth: %d", decoder.BitDepth).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("bit_depth", int(decoder.BitDepth)).
			Build()
	}

	if decoder.NumChans != conf.NumChannels {
		return nil, errors.Newf("unsupported number of channels: %d", decoder.NumChans).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("channels", int(decoder.NumChans)).
			Build()
	}

	return &wavReader{
		decoder: decoder,
		buf: &audio.IntBuffer{
			Format: &audio.Format{SampleRate: int(decoder.SampleRate), NumChannels: conf.NumChannels},
			Data:   make([]int, fileChunkFrames),
		},
		pcm: make([]byte, fileChunkFrames*2),
	}, nil
}

func (r *wavReader) sampleRate() int { return int(r.decoder.SampleRate) }

func (r *wavReader) next() ([]byte, int, error) {
	n, err := r.decoder.PCMBuffer(r.buf)
	if err != nil {
		return nil, 0, err
	}
	if n == 0 {
		return nil, 0, io.EOF
	}
	for i := range n {
		binary.LittleEndian.PutUint16(r.pcm[i*2:], uint16(int16(r.buf.Data[i]))) //nolint:gosec
	}
	return r.pcm[:n*2], n, nil
}
