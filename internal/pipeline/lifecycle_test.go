package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycleStartsUnconnected(t *testing.T) {
	t.Parallel()

	l := NewLifecycle()
	assert.Equal(t, StateUnconnected, l.State())
	assert.False(t, l.Stopping())
	assert.False(t, l.Released())
}

func TestLifecycleTransitionIsConditional(t *testing.T) {
	t.Parallel()

	l := NewLifecycle()
	assert.True(t, l.Transition(StateUnconnected, StateConnecting))
	assert.Equal(t, StateConnecting, l.State())

	// A stale from-state must not overwrite the current one.
	assert.False(t, l.Transition(StateUnconnected, StateStreaming))
	assert.Equal(t, StateConnecting, l.State())
}

func TestLifecycleStopSequence(t *testing.T) {
	t.Parallel()

	l := NewLifecycle()
	l.Transition(StateUnconnected, StateConnecting)
	l.Transition(StateConnecting, StateStreaming)

	require.True(t, l.BeginStop())
	assert.Equal(t, StatePausing, l.State())
	assert.True(t, l.Stopping())

	// Repeated stop requests are absorbed.
	assert.False(t, l.BeginStop())

	assert.True(t, l.ConfirmPaused())
	assert.Equal(t, StateDisconnected, l.State())
	assert.True(t, l.State().Terminal())
}

func TestLifecycleConcurrentStopsResolveToOne(t *testing.T) {
	t.Parallel()

	l := NewLifecycle()
	l.Transition(StateUnconnected, StateConnecting)
	l.Transition(StateConnecting, StateStreaming)

	const goroutines = 16
	wins := make(chan bool, goroutines)
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- l.BeginStop()
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	assert.Equal(t, 1, won)

	l.ConfirmPaused()
	assert.Equal(t, StateDisconnected, l.State())
}

func TestLifecycleSpontaneousPauseIsIgnored(t *testing.T) {
	t.Parallel()

	l := NewLifecycle()
	l.Transition(StateUnconnected, StateConnecting)
	l.Transition(StateConnecting, StateStreaming)

	// A pause with no stop in progress must not disconnect the stream.
	assert.False(t, l.ConfirmPaused())
	assert.Equal(t, StateStreaming, l.State())
}

func TestLifecycleStopBeforeStreaming(t *testing.T) {
	t.Parallel()

	// Stopping while still connecting must still land in Disconnected
	// once the backend confirms the pause.
	l := NewLifecycle()
	l.Transition(StateUnconnected, StateConnecting)

	l.BeginStop()
	assert.True(t, l.ConfirmPaused())
	assert.Equal(t, StateDisconnected, l.State())
}

func TestLifecycleErroredIsTerminal(t *testing.T) {
	t.Parallel()

	l := NewLifecycle()
	l.Transition(StateUnconnected, StateConnecting)
	l.MarkErrored()

	assert.Equal(t, StateErrored, l.State())
	assert.True(t, l.State().Terminal())
	assert.False(t, l.Transition(StateStreaming, StatePausing))
}

func TestLifecycleMarkDestroyedReleasesOwnership(t *testing.T) {
	t.Parallel()

	l := NewLifecycle()
	assert.False(t, l.Released())
	l.MarkDestroyed()
	assert.True(t, l.Released())
}

func TestLifecycleAwaitTerminal(t *testing.T) {
	t.Parallel()

	l := NewLifecycle()
	l.Transition(StateUnconnected, StateConnecting)
	l.Transition(StateConnecting, StateStreaming)
	l.BeginStop()

	go func() {
		time.Sleep(20 * time.Millisecond)
		l.ConfirmPaused()
	}()

	assert.True(t, l.AwaitTerminal(time.Second))
	assert.Equal(t, StateDisconnected, l.State())
}

func TestLifecycleAwaitTerminalTimesOut(t *testing.T) {
	t.Parallel()

	l := NewLifecycle()
	l.Transition(StateUnconnected, StateConnecting)
	assert.False(t, l.AwaitTerminal(30*time.Millisecond))
}

func TestStateStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unconnected", StateUnconnected.String())
	assert.Equal(t, "streaming", StateStreaming.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "errored", StateErrored.String())
}
