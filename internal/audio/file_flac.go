package audio

import (
	"encoding/binary"
	"os"

	"github.com/tphakala/flac"

	"github.com/pulseline/pulseline-go/internal/conf"
	"github.com/pulseline/pulseline-go/internal/errors"
)

// flacReader decodes mono FLAC input, downconverting 24 and 32 bit samples
// to S16LE.
type flacReader struct {
	decoder *flac.Decoder
	pcm     []byte
}

func newFLACReader(file *os.File, path string) (*flacReader, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return nil, errors.New(err).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}

	switch decoder.BitsPerSample {
	case 16, 24, 32:
	default:
		return nil, errors.Newf("unsupported bit depth: %d", decoder.BitsPerSample).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("bit_depth", decoder.BitsPerSample).
			Build()
	}

	if decoder.NChannels != conf.NumChannels {
		return nil, errors.Newf("unsupported number of channels: %d", decoder.NChannels).
			Component("audio").
			Category(errors.CategoryValidation).
			Context("channels", decoder.NChannels).
			Build()
	}

	return &flacReader{decoder: decoder}, nil
}

func (r *flacReader) sampleRate() int { return r.decoder.SampleRate }

func (r *flacReader) next() ([]byte, int, error) {
	frame, err := r.decoder.Next()
	if err != nil {
		// io.EOF passes through to end delivery.
		return nil, 0, err
	}

	bytesPerSample := r.decoder.BitsPerSample / 8
	frames := len(frame) / bytesPerSample
	if cap(r.pcm) < frames*2 {
		r.pcm = make([]byte, frames*2)
	}
	out := r.pcm[:frames*2]

	for i := range frames {
		var sample int32
		switch r.decoder.BitsPerSample {
		case 16:
			sample = int32(int16(binary.LittleEndian.Uint16(frame[i*2:])))
		case 24:
			sample = int32(frame[i*3]) | int32(frame[i*3+1])<<8 | int32(int8(frame[i*3+2]))<<16
			sample >>= 8
		case 32:
			sample = int32(binary.LittleEndian.Uint32(frame[i*4:])) >> 16 //nolint:gosec
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sample))) //nolint:gosec
	}

	return out, frames, nil
}
