package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ForService must hand back a usable logger even before Init runs, since
// library packages grab their loggers at construction time.
func TestForServiceBeforeAndAfterInit(t *testing.T) {
	structuredLogger = nil

	lg := ForService("test")
	require.NotNil(t, lg)
	assert.NotPanics(t, func() { lg.Info("uninitialized fallback") })

	Init()
	require.NotNil(t, structuredLogger)

	lg = ForService("test")
	require.NotNil(t, lg)
	assert.NotPanics(t, func() { lg.Info("initialized") })
}

func TestStructuredAccessors(t *testing.T) {
	Init()

	assert.NotNil(t, Structured())
	assert.NotNil(t, HumanReadable())
}
