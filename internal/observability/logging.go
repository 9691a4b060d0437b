package observability

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// NewLogger builds a structured logger from level and format names. Unknown
// values fall back to info-level text output.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := ParseLevel(level)
	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = NewJSONHandler(w, lvl)
	} else {
		handler = NewTextHandler(w, lvl)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewJSONHandler creates a JSON log handler for production use.
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// NewTextHandler creates a human-readable log handler for development.
func NewTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// WithTrace returns a logger carrying the trace and span ids of the span in
// ctx, so log lines correlate with traces. Without a valid span the logger
// is returned unchanged.
func WithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	spanCtx := span.SpanContext()
	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}

// sensitive field names, normalized lowercase without underscores
var sensitiveFields = map[string]bool{
	"apikey":     true,
	"secret":     true,
	"secretkey":  true,
	"password":   true,
	"token":      true,
	"credential": true,
	"content":    true,
	"reason":     true,
	"reasons":    true,
}

// RedactArgs replaces the values of sensitive log keys with a placeholder.
// Guarded content and credentials must never appear in log output.
func RedactArgs(args []any) []any {
	if len(args)%2 != 0 {
		return args
	}
	redacted := make([]any, len(args))
	copy(redacted, args)
	for i := 0; i < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			normalized := strings.ToLower(strings.ReplaceAll(key, "_", ""))
			if sensitiveFields[normalized] {
				redacted[i+1] = "[REDACTED]"
			}
		}
	}
	return redacted
}
