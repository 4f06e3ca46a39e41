package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderCarriesMetadata(t *testing.T) {
	t.Parallel()

	base := stderrors.New("device busy")
	err := New(base).
		Component("audio").
		Category(CategoryAudioSource).
		Context("device", "hw:0,0").
		Build()

	require.Error(t, err)
	assert.Equal(t, "device busy", err.Error())
	assert.Equal(t, "audio", err.GetComponent())
	assert.Equal(t, string(CategoryAudioSource), err.GetCategory())
	assert.Equal(t, "hw:0,0", err.GetContext()["device"])
	assert.False(t, err.GetTimestamp().IsZero())
}

func TestBuilderWrapsForErrorsIs(t *testing.T) {
	t.Parallel()

	base := stderrors.New("connection refused")
	err := New(base).Component("mqtt").Category(CategoryMQTTConnection).Build()

	assert.True(t, Is(err, base))
	assert.True(t, stderrors.Is(err, base))

	wrapped := fmt.Errorf("publishing: %w", err)
	var ee *EnhancedError
	require.True(t, As(wrapped, &ee))
	assert.Equal(t, "mqtt", ee.GetComponent())
}

func TestNewfFormatsMessage(t *testing.T) {
	t.Parallel()

	err := Newf("window size %d out of range", 9999).
		Component("conf").
		Category(CategoryValidation).
		Build()

	assert.Equal(t, "window size 9999 out of range", err.Error())
	assert.Equal(t, string(CategoryValidation), err.GetCategory())
}

func TestCategorizedErrorInterface(t *testing.T) {
	t.Parallel()

	err := Newf("bad input").Category(CategoryValidation).Build()

	var ce CategorizedError
	require.True(t, As(err, &ce))
	assert.Equal(t, string(CategoryValidation), string(ce.ErrorCategory()))
}
