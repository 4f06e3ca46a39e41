package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Teardown of a backend that never opened a device must not block or panic,
// in any order of Deactivate and Close.
func TestMalgoBackendTeardownWithoutDevice(t *testing.T) {
	t.Parallel()

	b := NewMalgoBackend("sysdefault", false)
	b.Deactivate()
	b.Deactivate()

	done := make(chan struct{})
	go func() {
		b.Close()
		b.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return after Deactivate")
	}
}

func TestMalgoBackendCloseBeforeDeactivate(t *testing.T) {
	t.Parallel()

	b := NewMalgoBackend("sysdefault", false)

	done := make(chan struct{})
	go func() {
		b.Close()
		close(done)
	}()

	// No stop was requested, so Close must not wait on the stop signal.
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked without a pending stop")
	}

	assert.NotPanics(t, func() { b.Deactivate() })
}

func TestSelectCaptureSourceNoMatch(t *testing.T) {
	t.Parallel()

	_, err := selectCaptureSource("front:CARD=0", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "front:CARD=0")
}

func TestHexToASCII(t *testing.T) {
	t.Parallel()

	s, err := hexToASCII("73797364")
	require.NoError(t, err)
	assert.Equal(t, "sysd", s)

	_, err = hexToASCII("zz")
	assert.Error(t, err)
}
