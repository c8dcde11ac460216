package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	logger, err := New("warn", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))

	logger, err = New("debug", "text")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNew_Invalid(t *testing.T) {
	_, err := New("loud", "json")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}

func TestRetryableLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rl := RetryableLogger{L: zap.New(core)}

	rl.Warn("retrying request", "url", "https://api.pinata.cloud", "attempt", 1)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "retrying request", entries[0].Message)
	assert.Equal(t, "https://api.pinata.cloud", entries[0].ContextMap()["url"])
}
