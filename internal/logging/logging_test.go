package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, format := range []string{"", "console", "JSON"} {
		logger, err := New("debug", format)
		require.NoError(t, err, format)
		assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	}

	logger, err := New("WARN", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewInvalid(t *testing.T) {
	_, err := New("chatty", "json")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}
