package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, env := range []string{"", "development", "production"} {
		l, err := New(env)
		require.NoError(t, err, env)
		assert.NotNil(t, l)
	}

	_, err := New("staging")
	assert.Error(t, err)
}

func TestEnsureLogger(t *testing.T) {
	l := EnsureLogger(nil)
	require.NotNil(t, l)
	assert.IsType(t, &NoOpLogger{}, l)

	// chaining never returns nil
	assert.NotNil(t, l.With("run_id", "x").WithComponent("builder"))
	assert.NoError(t, l.Sync())
}
