package pipeline

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPollInterval bounds the worst-case shutdown latency: the watcher
// observes a quit request within one interval.
const DefaultPollInterval = 50 * time.Millisecond

// ShutdownCoordinator bridges an asynchronous quit request (typically from
// signal context) to the consumer's run loop. RequestQuit performs a single
// atomic store and nothing else; a watcher goroutine polls the flag at a
// bounded interval and closes Done to request cooperative loop exit.
type ShutdownCoordinator struct {
	quit     atomic.Bool
	interval time.Duration

	done     chan struct{}
	doneOnce sync.Once

	stopWatch chan struct{}
	stopOnce  sync.Once
	watchExit chan struct{}
	watching  bool
}

// NewShutdownCoordinator returns a coordinator polling at the given
// interval, or DefaultPollInterval when non-positive.
func NewShutdownCoordinator(interval time.Duration) *ShutdownCoordinator {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &ShutdownCoordinator{
		interval:  interval,
		done:      make(chan struct{}),
		stopWatch: make(chan struct{}),
		watchExit: make(chan struct{}),
	}
}

// RequestQuit flags a quit request. Safe from any context including signal
// handling: one atomic store, no allocation, no locking, no I/O.
func (c *ShutdownCoordinator) RequestQuit() {
	c.quit.Store(true)
}

// QuitRequested reports whether a quit has been requested.
func (c *ShutdownCoordinator) QuitRequested() bool {
	return c.quit.Load()
}

// Watch starts the watcher goroutine. It polls the quit flag and closes
// Done when set. Call StopWatcher to shut the goroutine down.
func (c *ShutdownCoordinator) Watch() {
	if c.watching {
		return
	}
	c.watching = true

	go func() {
		defer close(c.watchExit)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopWatch:
				return
			case <-ticker.C:
				if c.quit.Load() {
					c.signalDone()
					return
				}
			}
		}
	}()
}

// signalDone closes the Done channel exactly once.
func (c *ShutdownCoordinator) signalDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Done is closed when the watcher has observed a quit request. The run
// loop selects on it to exit cooperatively.
func (c *ShutdownCoordinator) Done() <-chan struct{} {
	return c.done
}

// StopWatcher terminates the watcher goroutine and waits for it to exit.
// Idempotent; safe to call whether or not a quit was requested.
func (c *ShutdownCoordinator) StopWatcher() {
	if !c.watching {
		return
	}
	c.stopOnce.Do(func() { close(c.stopWatch) })
	<-c.watchExit
}

// Process-wide registration slot for the signal entry point. Signal-safe
// code can only touch already-initialized trivially-accessible state, so
// the active coordinator is registered once at startup and cleared at
// shutdown; every other code path reaches the coordinator through normal
// ownership.
var activeCoordinator atomic.Pointer[ShutdownCoordinator]

// Register installs the coordinator the signal entry point will flag.
func Register(c *ShutdownCoordinator) {
	activeCoordinator.Store(c)
}

// Unregister clears the registration slot if it still holds c.
func Unregister(c *ShutdownCoordinator) {
	activeCoordinator.CompareAndSwap(c, nil)
}

// RequestGlobalQuit flags the registered coordinator, if any. This is the
// only operation the signal path performs.
func RequestGlobalQuit() {
	if c := activeCoordinator.Load(); c != nil {
		c.RequestQuit()
	}
}
