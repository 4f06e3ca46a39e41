package audio

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulseline/pulseline-go/internal/conf"
)

func TestSavePCMDataToWAVRoundTrip(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 1000, -1000, 32767, -32768}
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	path := filepath.Join(t.TempDir(), "clips", "beat.wav")
	require.NoError(t, SavePCMDataToWAV(path, pcm))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	require.True(t, decoder.IsValidFile())
	assert.Equal(t, uint32(conf.SampleRate), decoder.SampleRate)
	assert.Equal(t, uint16(conf.BitDepth), decoder.BitDepth)
	assert.Equal(t, uint16(conf.NumChannels), decoder.NumChans)

	buf, err := decoder.FullPCMBuffer()
	require.NoError(t, err)
	require.Len(t, buf.Data, len(samples))
	for i, s := range samples {
		assert.Equal(t, int(s), buf.Data[i])
	}
}

func TestByteSliceToIntsIgnoresTrailingByte(t *testing.T) {
	t.Parallel()

	got := byteSliceToInts([]byte{0x01, 0x00, 0xFF})
	assert.Equal(t, []int{1}, got)
}
