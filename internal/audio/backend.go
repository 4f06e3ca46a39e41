package audio

// CaptureHooks is the capability interface a backend drives. The Ready and
// Process hooks run on the backend's scheduler and must be allocation-free;
// the remaining hooks fire from backend-adjacent contexts during lifecycle
// changes.
type CaptureHooks struct {
	// Ready fires once the backend is delivering data.
	Ready func()
	// Process delivers one raw capture buffer. The descriptor and its data
	// are only valid until the hook returns.
	Process func(rc *RawCapture)
	// Error reports a fatal backend error during streaming.
	Error func(err error)
	// Paused fires after callback scheduling has stopped; the backend
	// guarantees no further Process invocations after this notification.
	Paused func()
	// Drained fires when a finite source has delivered all of its data.
	// Live capture backends never fire it.
	Drained func()
	// Destroyed fires if the backend tears down the connection itself; the
	// owner must relinquish its claim without a second release.
	Destroyed func()
}

// Backend is an audio capture source delivering raw buffers via hooks.
type Backend interface {
	// Open acquires the capture connection and registers the hooks.
	Open(hooks CaptureHooks) error
	// Start begins callback scheduling.
	Start() error
	// Deactivate asks the backend to stop scheduling Process callbacks. It
	// returns without waiting; the Paused hook fires once scheduling has
	// stopped. Safe to call more than once.
	Deactivate()
	// Close releases the capture connection. Only safe after Paused has
	// fired or Open/Start failed.
	Close()
	// SampleRate returns the negotiated capture sample rate.
	SampleRate() int
}
