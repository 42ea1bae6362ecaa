package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studioflow/internal/config"
	"studioflow/internal/logging"
	"studioflow/internal/services"
)

func TestNewFromConfigWritesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	require.NoError(t, err)
	logger.Info("hello from test")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "studioflow.log"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "hello from test")
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	require.NoError(t, err)

	logger.Info("message without caller")
	assert.NotContains(t, buf.String(), ".go:")
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", Writer: &buf})
	require.NoError(t, err)

	logger.Info("message with caller")
	assert.Contains(t, buf.String(), ".go:")
}

func TestConsoleLoggerHeader(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	require.NoError(t, err)

	logging.NewComponentLogger(logger, "workflow").Info("advanced",
		logging.String(logging.FieldJobID, "0123456789abcdef"),
		logging.String(logging.FieldStage, "finishing"),
		logging.String("target", "finishing"),
	)
	out := buf.String()
	assert.Contains(t, out, "INFO [workflow] Job 01234567 (finishing) – advanced")
	assert.Contains(t, out, "    - target: finishing")
	assert.NotContains(t, out, "- job_id")
}

func TestConsoleLoggerHidesExtraInfoFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", Writer: &buf})
	require.NoError(t, err)

	attrs := make([]logging.Attr, 0, 10)
	for i := 0; i < 10; i++ {
		attrs = append(attrs, logging.Int("f"+string(rune('a'+i)), i))
	}
	logger.Info("busy", logging.Args(attrs...)...)
	assert.Contains(t, buf.String(), "+ 2 more fields hidden")
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	require.NoError(t, err)

	logger.Info("json message", logging.String("k", "v"))
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "json message", record["msg"])
	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "v", record["k"])
	assert.Contains(t, record, "ts")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := logging.New(logging.Options{Format: "xml"})
	assert.Error(t, err)
}

func TestNewInvalidLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", Writer: &buf})
	require.NoError(t, err)
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithJobID(ctx, "job-123")
	ctx = services.WithStage(ctx, "capture")
	ctx = services.WithActorID(ctx, "w-9")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	require.NoError(t, err)

	logging.WithContext(ctx, logger).Info("contextual log")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "job-123", record[logging.FieldJobID])
	assert.Equal(t, "capture", record[logging.FieldStage])
	assert.Equal(t, "w-9", record[logging.FieldActorID])
	assert.Equal(t, "req-xyz", record[logging.FieldCorrelationID])
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Level: "info", Writer: &buf})
	require.NoError(t, err)

	logging.WarnWithContext(logger, "publish failed", "notification_failed",
		logging.Error(errors.New("timeout")),
		logging.String(logging.FieldImpact, "recipient misses a push"),
	)
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "notification_failed", record[logging.FieldEventType])
	assert.Equal(t, "check logs for details", record[logging.FieldErrorHint])
	assert.Equal(t, "recipient misses a push", record[logging.FieldImpact])
	assert.Equal(t, "timeout", record["error"])
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	assert.False(t, logger.Enabled(context.Background(), 12))
	logging.WarnWithContext(nil, "ignored", "x")
	assert.True(t, strings.HasPrefix(logging.FormatSubject("abc", ""), "Job abc"))
	assert.Equal(t, "capture", logging.FormatSubject("", "capture"))
}
