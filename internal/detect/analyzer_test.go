package detect

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		SampleRate:  44100,
		WindowSize:  512,
		Sensitivity: 4.0,
		MinBPM:      40,
		MaxBPM:      240,
	}
}

func TestNewAnalyzerValidatesConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"zero window size", func(c *Config) { c.WindowSize = 0 }},
		{"sensitivity at identity", func(c *Config) { c.Sensitivity = 1.0 }},
		{"zero min bpm", func(c *Config) { c.MinBPM = 0 }},
		{"inverted tempo band", func(c *Config) { c.MinBPM = 200; c.MaxBPM = 100 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewAnalyzer(cfg)
			assert.Error(t, err)
		})
	}

	_, err := NewAnalyzer(testConfig())
	assert.NoError(t, err)
}

func TestAnalyzerSilenceProducesNothing(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	window := make([]float32, 512)
	for range 100 {
		res := a.Detect(window)
		assert.False(t, res.Onset)
		assert.False(t, res.Beat)
		assert.Equal(t, float32(0), res.PitchHz)
	}
	assert.Equal(t, float32(0), a.LastBPM())
}

func TestAnalyzerClickTrainTempo(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	// Clicks 43 windows apart at 44100 Hz with 512-sample windows put the
	// inter-onset interval at 22016 samples, which is 120.2 BPM.
	click := make([]float32, 512)
	for i := range 64 {
		click[i] = 0.9
	}
	silence := make([]float32, 512)

	var onsets, beats int
	var bpm float32
	for w := range 100 {
		window := silence
		if w == 10 || w == 53 || w == 96 {
			window = click
		}
		res := a.Detect(window)
		if res.Onset {
			onsets++
		}
		if res.Beat {
			beats++
			bpm = res.BPM
		}
	}

	assert.Equal(t, 3, onsets)
	assert.Equal(t, 2, beats)
	assert.InDelta(t, 120.0, bpm, 2.0)
	assert.InDelta(t, 120.0, a.LastBPM(), 2.0)
}

func TestAnalyzerRejectsOutOfBandTempo(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	click := make([]float32, 512)
	for i := range 64 {
		click[i] = 0.9
	}
	silence := make([]float32, 512)

	// Clicks 9 windows apart give roughly 574 BPM, far above the band:
	// onsets fire but no beat may be reported.
	var beats int
	for w := range 40 {
		window := silence
		if w == 10 || w == 19 || w == 28 {
			window = click
		}
		if a.Detect(window).Beat {
			beats++
		}
	}
	assert.Equal(t, 0, beats)
	assert.Equal(t, float32(0), a.LastBPM())
}

func TestAnalyzerPitchEstimation(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Pitch = true
	a, err := NewAnalyzer(cfg)
	require.NoError(t, err)

	// A pure 440 Hz tone at 44100 Hz has its period near lag 100, so the
	// estimate lands within a lag's quantization of the true frequency.
	window := make([]float32, 512)
	for i := range window {
		window[i] = float32(0.8 * math.Sin(2*math.Pi*440*float64(i)/44100))
	}

	res := a.Detect(window)
	assert.InDelta(t, 440.0, res.PitchHz, 6.0)
}

func TestAnalyzerPitchDisabledByDefault(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	window := make([]float32, 512)
	for i := range window {
		window[i] = float32(0.8 * math.Sin(2*math.Pi*440*float64(i)/44100))
	}

	res := a.Detect(window)
	assert.Equal(t, float32(0), res.PitchHz)
}

func TestAnalyzerAdaptiveThresholdIgnoresSustainedLevel(t *testing.T) {
	t.Parallel()

	a, err := NewAnalyzer(testConfig())
	require.NoError(t, err)

	// A constant loud signal raises the rolling energy mean; after the
	// first attack no further onsets fire because nothing stands out.
	loud := make([]float32, 512)
	for i := range loud {
		loud[i] = 0.5
	}

	var onsets int
	for range 100 {
		if a.Detect(loud).Onset {
			onsets++
		}
	}
	assert.LessOrEqual(t, onsets, 2)
}
