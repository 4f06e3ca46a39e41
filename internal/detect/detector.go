// Package detect provides the beat, onset and pitch detection primitive.
//
// The pipeline consumes detection strictly through the Detector interface,
// so the built-in Analyzer can be swapped for another implementation
// without touching the event plumbing. Implementations must be bounded and
// allocation-free per call: Detect runs inside the real-time capture
// callback.
package detect

// Result holds the detection outcome for a single analysis window.
type Result struct {
	Beat    bool    // a beat was detected in this window
	Onset   bool    // an onset (energy attack) was detected in this window
	BPM     float32 // instantaneous tempo estimate, valid when Beat is set
	PitchHz float32 // pitch estimate in Hz, 0 when none was found
}

// Detector analyzes one fixed-length sample window at a time. The window is
// a read-only view into the caller's buffer, valid only for the call.
type Detector interface {
	Detect(window []float32) Result
}

// Config bundles the tunables for the built-in Analyzer.
type Config struct {
	SampleRate  int     // capture sample rate in Hz
	WindowSize  int     // analysis window length in samples
	Sensitivity float64 // onset threshold multiplier over the rolling energy mean
	MinBPM      float64 // lower bound of the plausible tempo band
	MaxBPM      float64 // upper bound of the plausible tempo band
	Pitch       bool    // enable pitch estimation
}
