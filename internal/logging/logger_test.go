package logging_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carousel/internal/config"
	"carousel/internal/logging"
	"carousel/internal/services"
)

func tempLog(t *testing.T) (string, func() string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "carousel.log")
	read := func() string {
		content, err := os.ReadFile(logPath)
		require.NoError(t, err)
		return string(content)
	}
	return logPath, read
}

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Dir = t.TempDir()
	cfg.Logging.Level = "debug"

	logger, err := logging.NewFromConfig(&cfg)
	require.NoError(t, err)
	require.NotNil(t, logger)

	logger.Debug("debug message")

	content, err := os.ReadFile(filepath.Join(cfg.Logging.Dir, "carousel.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "debug message")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "xml"})
	assert.Error(t, err)
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logPath, read := tempLog(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	require.NoError(t, err)

	logger.Info("message without caller")

	assert.NotContains(t, read(), ".go:")
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath, read := tempLog(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}, ErrorOutputPaths: []string{logPath}})
	require.NoError(t, err)

	logger.Info("message with caller")

	assert.Contains(t, read(), "logger_test.go:")
}

func TestConsoleLoggerFormatsComponentAndFields(t *testing.T) {
	logPath, read := tempLog(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	component := logging.NewComponentLogger(logger, "comfyui")
	component.Info("job queued", logging.String("job_id", "abc"), logging.String("template", "2-Text Analysis"), logging.Int("attempt", 2))
	component.Debug("hidden")

	content := read()
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 1)
	line := lines[0]
	assert.Contains(t, line, " INFO comfyui: job queued")
	assert.Contains(t, line, "job_id=abc")
	assert.Contains(t, line, `template="2-Text Analysis"`)
	assert.Contains(t, line, "attempt=2")
	assert.NotContains(t, line, "\x1b[", "file output is never colored")
}

func TestConsoleLoggerKeepsKeysFlat(t *testing.T) {
	logPath, read := tempLog(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	logger.WithGroup("request").With(logging.String("method", "POST")).Info("served", logging.Int("status", 200))

	line := strings.TrimSpace(read())
	assert.Contains(t, line, "method=POST")
	assert.Contains(t, line, "status=200")
	assert.NotContains(t, line, "request.")
}

func TestJSONLoggerUsesShortKeys(t *testing.T) {
	logPath, read := tempLog(t)
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	logger.Warn("engine unavailable", logging.Error(errors.New("connection refused")))

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(read())), &record))
	assert.Equal(t, "warn", record["level"])
	assert.Equal(t, "engine unavailable", record["msg"])
	assert.Equal(t, "connection refused", record["error"])
	assert.Contains(t, record, "ts")
}

func TestWithContextAddsFields(t *testing.T) {
	logPath, read := tempLog(t)
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	require.NoError(t, err)

	ctx := services.WithRequestID(context.Background(), "req-1")
	ctx = services.WithTemplate(ctx, "captions")
	ctx = services.WithJobID(ctx, "job-9")

	logging.WithContext(ctx, logger).Info("fetched")

	content := read()
	assert.Contains(t, content, "correlation_id=req-1")
	assert.Contains(t, content, "template=captions")
	assert.Contains(t, content, "job_id=job-9")
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("nothing", logging.String("k", "v"))
	assert.False(t, logger.Enabled(context.Background(), 100))
	assert.NotNil(t, logging.WithContext(context.Background(), nil))
}
