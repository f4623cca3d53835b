package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// newObservedLogger returns a Logger backed by an in-memory core.
func newObservedLogger(t *testing.T) (*Logger, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{zap: zap.New(core), config: NewDefaultConfig()}, logs
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, logger)

	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	_, err := NewLogger(&Config{Level: "trace", Format: "json"})
	assert.Error(t, err)

	_, err = NewLogger(&Config{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestLogger_ContextFields(t *testing.T) {
	logger, logs := newObservedLogger(t)

	ctx := WithRequestID(context.Background(), "req-123")
	logger.Info(ctx, "tool started", zap.String("tool_name", "get_readme"))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-123", fields["request.id"])
	assert.Equal(t, "get_readme", fields["tool_name"])
}

func TestLogger_NoRequestID(t *testing.T) {
	logger, logs := newObservedLogger(t)

	logger.Info(context.Background(), "no correlation")

	entries := logs.All()
	require.Len(t, entries, 1)
	_, present := entries[0].ContextMap()["request.id"]
	assert.False(t, present)
}

func TestLogger_NamedAndWith(t *testing.T) {
	logger, logs := newObservedLogger(t)

	child := logger.Named("usage").With(zap.String("component", "pipeline"))
	child.Warn(context.Background(), "slow call")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "usage", entries[0].LoggerName)
	assert.Equal(t, "pipeline", entries[0].ContextMap()["component"])
}

func TestWithRequestID_EmptyIgnored(t *testing.T) {
	ctx := WithRequestID(context.Background(), "keep-me")
	ctx = WithRequestID(ctx, "")
	assert.Equal(t, "keep-me", RequestIDFromContext(ctx))
}

func TestFromContext(t *testing.T) {
	logger := NewNop()
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	// Missing logger yields a usable nop, never nil.
	assert.NotNil(t, FromContext(context.Background()))
}
