package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "json")

	logger.Info("checkpoint evaluated", "guardrail", "pii")
	logger.Debug("suppressed")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "checkpoint evaluated", record["msg"])
	assert.Equal(t, "pii", record["guardrail"])
	assert.NotContains(t, buf.String(), "suppressed")
}

func TestRedactArgs(t *testing.T) {
	args := []any{"guardrail", "pii", "api_key", "sk-live", "content", "hello", "reasons", []string{"matched ssn"}}
	redacted := RedactArgs(args)

	assert.Equal(t, "pii", redacted[1])
	assert.Equal(t, "[REDACTED]", redacted[3])
	assert.Equal(t, "[REDACTED]", redacted[5])
	assert.Equal(t, "[REDACTED]", redacted[7])
	// Input slice is untouched.
	assert.Equal(t, "sk-live", args[3])
}

func TestWithTrace_NoSpanIsNoop(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "text")

	WithTrace(context.Background(), logger).Info("no trace")
	assert.NotContains(t, buf.String(), "trace_id")
}
