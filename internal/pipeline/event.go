package pipeline

// Event is one detection result crossing from the producer (real-time
// capture callback) to the consumer (run loop). Events are created once per
// window that yields at least one positive detection and never mutated
// afterwards.
type Event struct {
	IsBeat    bool    // a beat was detected
	IsOnset   bool    // an onset was detected
	BPM       float32 // instantaneous tempo at this beat, 0 for onset-only events
	AvgBPM    float32 // rolling BPM average snapshot taken at push time
	PitchHz   float32 // pitch estimate in Hz, 0 when disabled or not found
	ProcessMS float64 // producer-side processing time for the window, in milliseconds
}
