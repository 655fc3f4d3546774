package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	t.Run("creates JSON logger with proper configuration", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		logger.Info("test message",
			slog.String("component", "test"),
			slog.Int("count", 42))

		output := buf.String()
		assert.Contains(t, output, `"level":"INFO"`)
		assert.Contains(t, output, `"msg":"test message"`)
		assert.Contains(t, output, `"component":"test"`)
		assert.Contains(t, output, `"count":42`)
		assert.Contains(t, output, `"time":`)
	})

	t.Run("respects log level configuration", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelWarn)

		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warning message")

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.NotContains(t, output, "info message")
		assert.Contains(t, output, "warning message")
	})
}

func TestForComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := ForComponent(NewStructuredLogger(&buf, slog.LevelInfo), "walk_resolver")

	logger.Info("cache miss")
	assert.Contains(t, buf.String(), `"component":"walk_resolver"`)

	assert.NotNil(t, ForComponent(nil, "fallback"))
}

func TestLoggerHelpers(t *testing.T) {
	t.Run("LogError creates structured error log", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogError(logger, "failed to fetch stop events", assert.AnError,
			slog.String("stop", "Graz Jakominiplatz"),
			slog.String("component", "trias_client"))

		output := buf.String()
		assert.Contains(t, output, `"level":"ERROR"`)
		assert.Contains(t, output, `"msg":"failed to fetch stop events"`)
		assert.Contains(t, output, `"error":"assert.AnError general error for testing"`)
		assert.Contains(t, output, `"stop":"Graz Jakominiplatz"`)
		assert.Contains(t, output, `"component":"trias_client"`)
	})

	t.Run("LogError tolerates a nil error and a nil logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogError(logger, "every stop failed", nil)
		LogError(nil, "ignored", assert.AnError)

		output := buf.String()
		assert.Contains(t, output, `"msg":"every stop failed"`)
		assert.NotContains(t, output, `"error":`)
	})

	t.Run("LogOperation skips zero durations", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogOperation(logger, "cycle_completed",
			slog.Int("departures", 12),
			slog.Duration("duration", 0))

		output := buf.String()
		assert.Contains(t, output, `"msg":"cycle_completed"`)
		assert.Contains(t, output, `"departures":12`)
		assert.NotContains(t, output, `"duration"`)
	})

	t.Run("LogHTTPRequest logs request details", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		LogHTTPRequest(logger, "GET", "/api", 200, 1.5,
			slog.String("user_agent", "test-client"))

		output := buf.String()
		assert.Contains(t, output, `"msg":"http_request"`)
		assert.Contains(t, output, `"method":"GET"`)
		assert.Contains(t, output, `"path":"/api"`)
		assert.Contains(t, output, `"status":200`)
		assert.Contains(t, output, `"duration_ms":1.5`)
		assert.Contains(t, output, `"user_agent":"test-client"`)
	})

	t.Run("LogUpstreamRequest logs at debug level", func(t *testing.T) {
		var buf bytes.Buffer

		LogUpstreamRequest(NewStructuredLogger(&buf, slog.LevelInfo), "osrm", "http://osrm.local", 200, time.Millisecond)
		assert.Empty(t, buf.String())

		LogUpstreamRequest(NewStructuredLogger(&buf, slog.LevelDebug), "osrm", "http://osrm.local", 200, time.Millisecond)
		output := buf.String()
		assert.Contains(t, output, `"msg":"upstream_request"`)
		assert.Contains(t, output, `"upstream":"osrm"`)
		assert.Contains(t, output, `"duration_ms":1`)
	})
}

func TestContextLogger(t *testing.T) {
	t.Run("stores and retrieves logger from context", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewStructuredLogger(&buf, slog.LevelInfo)

		ctx := WithLogger(context.Background(), logger)

		retrievedLogger := FromContext(ctx)
		require.NotNil(t, retrievedLogger)

		retrievedLogger.Info("test from context")
		assert.Contains(t, buf.String(), "test from context")
	})

	t.Run("returns default logger when not in context", func(t *testing.T) {
		logger := FromContext(context.Background())
		require.NotNil(t, logger)
		logger.Info("test message")
	})
}
