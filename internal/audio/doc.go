// Package audio provides audio capture backends and the windowing adapter
// that slices raw capture buffers into fixed-length analysis windows.
//
// The package separates two concerns: a Backend delivers raw PCM buffers
// through callback hooks at its own cadence, and a WindowAdapter turns each
// raw buffer into zero or more read-only sample windows for the detection
// primitive. The hooks' Process path runs under real-time constraints and
// must not allocate, lock or block.
package audio
