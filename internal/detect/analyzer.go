package detect

import (
	"github.com/pulseline/pulseline-go/internal/errors"
)

const (
	// energyHistLen is the number of recent window energies kept for the
	// adaptive onset threshold, roughly one second at 512/44100.
	energyHistLen = 64

	// energyFloor is the minimum mean-square energy a window must carry to
	// count as an onset at all; below it lies noise and silence.
	energyFloor = 1e-4

	// minOnsetGapSeconds is the refractory period between onsets.
	minOnsetGapSeconds = 0.05

	// Pitch search band in Hz.
	minPitchHz = 80
	maxPitchHz = 1000

	// corrThreshold is the minimum normalized autocorrelation for a lag to
	// be reported as a pitch.
	corrThreshold = 0.8
)

// Analyzer is the built-in detection primitive: energy-envelope onset
// detection with an adaptive threshold, inter-onset-interval tempo tracking
// clamped to a plausible BPM band, and optional normalized-autocorrelation
// pitch estimation. All state is preallocated; Detect never allocates.
type Analyzer struct {
	cfg Config

	// Rolling window energy statistics.
	energyHist [energyHistLen]float64
	histHead   int
	histCount  int
	histSum    float64

	// Sample clock, advanced by one window length per Detect call.
	clock       uint64
	lastOnset   uint64
	haveOnset   bool
	minOnsetGap uint64
	lastBPM     float32
}

// NewAnalyzer validates the config and returns a ready Analyzer.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if cfg.SampleRate <= 0 {
		return nil, errors.Newf("invalid sample rate: %d", cfg.SampleRate).
			Component("detect").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.WindowSize <= 0 {
		return nil, errors.Newf("invalid window size: %d", cfg.WindowSize).
			Component("detect").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.Sensitivity <= 1.0 {
		return nil, errors.Newf("sensitivity %.2f must be greater than 1.0", cfg.Sensitivity).
			Component("detect").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.MinBPM <= 0 || cfg.MaxBPM <= cfg.MinBPM {
		return nil, errors.Newf("invalid tempo band [%.1f, %.1f]", cfg.MinBPM, cfg.MaxBPM).
			Component("detect").
			Category(errors.CategoryValidation).
			Build()
	}

	return &Analyzer{
		cfg:         cfg,
		minOnsetGap: uint64(minOnsetGapSeconds * float64(cfg.SampleRate)),
	}, nil
}

// Detect analyzes one window and advances the analyzer's sample clock.
func (a *Analyzer) Detect(window []float32) Result {
	var res Result

	energy := meanSquare(window)

	avg := 0.0
	if a.histCount > 0 {
		avg = a.histSum / float64(a.histCount)
	}

	threshold := avg * a.cfg.Sensitivity
	if threshold < energyFloor {
		threshold = energyFloor
	}

	if energy > threshold && a.clock-a.lastOnset >= a.minOnsetGap {
		res.Onset = true

		if a.haveOnset {
			interval := a.clock - a.lastOnset
			if interval > 0 {
				bpm := 60.0 * float64(a.cfg.SampleRate) / float64(interval)
				if bpm >= a.cfg.MinBPM && bpm <= a.cfg.MaxBPM {
					res.Beat = true
					res.BPM = float32(bpm)
					a.lastBPM = res.BPM
				}
			}
		}

		a.lastOnset = a.clock
		a.haveOnset = true
	}

	if a.cfg.Pitch && energy > energyFloor {
		res.PitchHz = a.estimatePitch(window)
	}

	a.pushEnergy(energy)
	a.clock += uint64(len(window))

	return res
}

// LastBPM returns the most recent in-band tempo estimate, 0 before the
// first beat.
func (a *Analyzer) LastBPM() float32 { return a.lastBPM }

// pushEnergy inserts a window energy into the history ring.
func (a *Analyzer) pushEnergy(energy float64) {
	if a.histCount == energyHistLen {
		a.histSum -= a.energyHist[a.histHead]
	} else {
		a.histCount++
	}
	a.energyHist[a.histHead] = energy
	a.histSum += energy
	a.histHead = (a.histHead + 1) % energyHistLen
}

// estimatePitch runs a normalized autocorrelation over the window and
// returns the frequency of the first strong correlation peak, 0 if none.
func (a *Analyzer) estimatePitch(window []float32) float32 {
	minLag := a.cfg.SampleRate / maxPitchHz
	maxLag := a.cfg.SampleRate / minPitchHz
	if maxLag > len(window)/2 {
		maxLag = len(window) / 2
	}
	if minLag < 2 || minLag >= maxLag {
		return 0
	}

	best := 0.0
	bestLag := 0
	for lag := minLag; lag <= maxLag; lag++ {
		c := normalizedCorrelation(window, lag)
		if c > best {
			best = c
			bestLag = lag
		} else if best > corrThreshold && c < best-0.01 {
			// Past the first strong peak; stop before a harmonic at a
			// longer lag can displace it.
			break
		}
	}

	if best < corrThreshold || bestLag == 0 {
		return 0
	}
	return float32(a.cfg.SampleRate) / float32(bestLag)
}

// meanSquare returns the mean squared amplitude of the window.
func meanSquare(window []float32) float64 {
	if len(window) == 0 {
		return 0
	}
	var sum float64
	for _, s := range window {
		sum += float64(s) * float64(s)
	}
	return sum / float64(len(window))
}

// normalizedCorrelation computes 2*sum(x[i]*x[i+lag]) / sum(x[i]^2 + x[i+lag]^2),
// which is 1 for a perfectly periodic signal at its period lag.
func normalizedCorrelation(window []float32, lag int) float64 {
	n := len(window) - lag
	if n <= 0 {
		return 0
	}
	var cross, norm float64
	for i := range n {
		x := float64(window[i])
		y := float64(window[i+lag])
		cross += x * y
		norm += x*x + y*y
	}
	if norm == 0 {
		return 0
	}
	return 2 * cross / norm
}
