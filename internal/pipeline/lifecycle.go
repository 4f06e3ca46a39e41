package pipeline

import (
	"sync/atomic"
	"time"
)

// State is the stream connection lifecycle state.
type State int32

const (
	StateUnconnected State = iota
	StateConnecting
	StateStreaming
	StatePausing
	StateDisconnected
	StateErrored
)

// String returns the state name for logs.
func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StatePausing:
		return "pausing"
	case StateDisconnected:
		return "disconnected"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateDisconnected || s == StateErrored
}

// Lifecycle is the connect/run/pause/disconnect/error state machine for the
// audio connection. It is mutated both from backend notification contexts
// and from the consumer's stop path, so every transition is a CAS; there is
// no mutex anywhere and transitions are safe under concurrent teardown.
//
// The stopping flag makes stop idempotent, and the released flag guarantees
// the backend connection is relinquished exactly once even when an
// asynchronous backend destroy races an explicit disconnect.
type Lifecycle struct {
	state    atomic.Int32
	stopping atomic.Bool
	released atomic.Bool
}

// NewLifecycle returns a state machine in StateUnconnected.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return State(l.state.Load())
}

// Transition moves from one state to another, reporting whether the machine
// was actually in the from state.
func (l *Lifecycle) Transition(from, to State) bool {
	return l.state.CompareAndSwap(int32(from), int32(to))
}

// BeginStop requests a cooperative stop. The first call moves
// Streaming to Pausing and returns true; every later call returns false.
// Callers deactivate callback scheduling on true, and never release
// resources here: an in-flight producer callback may still be executing.
func (l *Lifecycle) BeginStop() bool {
	if !l.stopping.CompareAndSwap(false, true) {
		return false
	}
	l.Transition(StateStreaming, StatePausing)
	return true
}

// Stopping reports whether a stop has been requested.
func (l *Lifecycle) Stopping() bool {
	return l.stopping.Load()
}

// ConfirmPaused handles the backend's paused notification. When a stop is
// in progress it completes the disconnect: after this notification the
// backend guarantees no further producer callbacks, so releasing the
// connection is now safe. Reports whether the disconnect completed.
func (l *Lifecycle) ConfirmPaused() bool {
	if !l.stopping.Load() {
		// Pause without a stop request; not ours to act on.
		return false
	}
	moved := l.Transition(StatePausing, StateDisconnected)
	moved = l.Transition(StateConnecting, StateDisconnected) || moved
	return moved
}

// MarkErrored moves to the terminal error state from any state.
func (l *Lifecycle) MarkErrored() {
	l.state.Store(int32(StateErrored))
}

// MarkDestroyed handles the backend tearing the connection down itself:
// the ownership claim is relinquished so no second release follows.
func (l *Lifecycle) MarkDestroyed() {
	l.released.Store(true)
}

// Released reports whether the backend already tore the connection down,
// meaning the owner must not release it again.
func (l *Lifecycle) Released() bool {
	return l.released.Load()
}

// AwaitTerminal polls until the machine reaches a terminal state or the
// timeout elapses, reporting whether a terminal state was reached.
func (l *Lifecycle) AwaitTerminal(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if l.State().Terminal() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
