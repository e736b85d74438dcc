package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	t.Parallel()

	dev, err := New(true)
	require.NoError(t, err)
	assert.True(t, dev.Core().Enabled(zap.DebugLevel))

	prod, err := New(false)
	require.NoError(t, err)
	assert.False(t, prod.Core().Enabled(zap.DebugLevel))
	assert.True(t, prod.Core().Enabled(zap.InfoLevel))
}

func TestComponent(t *testing.T) {
	t.Parallel()

	base, err := New(false)
	require.NoError(t, err)
	assert.NotNil(t, Component(base, "coordinator"))
	assert.NotNil(t, Component(nil, "coordinator"))
}
