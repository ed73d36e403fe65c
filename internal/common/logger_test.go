package common

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLoggerConfig(t *testing.T) {
	config := DefaultLoggerConfig()

	assert.Equal(t, InfoLevel, config.Level)
	assert.Equal(t, "gonka-monitor", config.Component)
	assert.False(t, config.IncludeSource)
}

func TestNewLoggerEmitsJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{
		Level:     InfoLevel,
		Output:    &buf,
		Component: "test-component",
	})

	logger.Info("hello", "key", "value")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "hello", record["msg"])
	assert.Equal(t, "test-component", record["component"])
	assert.Equal(t, "value", record["key"])
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{
		Level:  WarnLevel,
		Output: &buf,
	})

	logger.Info("dropped")
	assert.Zero(t, buf.Len(), "Info should be filtered at warn level")

	logger.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestLoggerContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{
		Level:     DebugLevel,
		Output:    &buf,
		Component: "ctx-test",
	})

	ctx := ContextWithLogger(context.Background(), logger)
	recovered := LoggerFromContext(ctx)

	recovered.Debug("through context")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "ctx-test", record["component"],
		"The context must hand back the logger that was stored")
}

func TestLoggerFromContextFallsBack(t *testing.T) {
	logger := LoggerFromContext(context.Background())

	assert.NotNil(t, logger, "A bare context still yields a usable logger")
}
