package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

// TestMain provides goleak verification to detect goroutine leaks.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
	)
}

func TestShutdownCoordinatorSignalsWithinOneInterval(t *testing.T) {
	t.Parallel()

	c := NewShutdownCoordinator(10 * time.Millisecond)
	c.Watch()
	defer c.StopWatcher()

	c.RequestQuit()
	assert.True(t, c.QuitRequested())

	select {
	case <-c.Done():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("quit request was not observed within the latency bound")
	}
}

func TestShutdownCoordinatorQuitIsIdempotent(t *testing.T) {
	t.Parallel()

	c := NewShutdownCoordinator(10 * time.Millisecond)
	c.Watch()
	defer c.StopWatcher()

	for range 5 {
		c.RequestQuit()
	}

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Done to close")
	}
}

func TestShutdownCoordinatorStopWithoutQuit(t *testing.T) {
	t.Parallel()

	c := NewShutdownCoordinator(10 * time.Millisecond)
	c.Watch()
	c.StopWatcher()
	c.StopWatcher()

	select {
	case <-c.Done():
		t.Fatal("Done must stay open when no quit was requested")
	default:
	}
}

func TestShutdownCoordinatorStopWithoutWatch(t *testing.T) {
	t.Parallel()

	c := NewShutdownCoordinator(0)
	c.StopWatcher()
	assert.False(t, c.QuitRequested())
}

func TestGlobalRegistrationSlot(t *testing.T) {
	c := NewShutdownCoordinator(time.Millisecond)
	Register(c)
	defer Unregister(c)

	RequestGlobalQuit()
	assert.True(t, c.QuitRequested())

	Unregister(c)
	// With no registration the global quit is a no-op.
	RequestGlobalQuit()
}

func TestUnregisterOnlyClearsOwnRegistration(t *testing.T) {
	a := NewShutdownCoordinator(time.Millisecond)
	b := NewShutdownCoordinator(time.Millisecond)

	Register(a)
	Register(b)
	defer Unregister(b)

	// a's deferred cleanup must not evict the newer registration.
	Unregister(a)
	RequestGlobalQuit()

	assert.False(t, a.QuitRequested())
	assert.True(t, b.QuitRequested())
}
