package observe

import (
	"context"
	"io"
	"os"
	"slices"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const redacted = "[REDACTED]"

// ParseLogLevel parses a string log level. Unknown or empty levels map to info.
func ParseLogLevel(s string) zerolog.Level {
	if s == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// zeroLogger is a JSON structured logger backed by zerolog.
type zeroLogger struct {
	zl zerolog.Logger
}

// NewLogger creates a new structured logger writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a new structured logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	zl := zerolog.New(w).Level(ParseLogLevel(level)).With().Timestamp().Logger()
	return &zeroLogger{zl: zl}
}

// With returns a child logger carrying fields on every entry.
func (l *zeroLogger) With(fields ...Field) Logger {
	c := l.zl.With()
	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			c = c.Str(f.Key, redact(f.Key, v.Error()))
		case string:
			c = c.Str(f.Key, redact(f.Key, v))
		default:
			if isRedactedField(f.Key) {
				c = c.Str(f.Key, redacted)
			} else {
				c = c.Interface(f.Key, v)
			}
		}
	}
	return &zeroLogger{zl: c.Logger()}
}

func (l *zeroLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, l.zl.Info(), msg, fields)
}

func (l *zeroLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, l.zl.Warn(), msg, fields)
}

func (l *zeroLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, l.zl.Error(), msg, fields)
}

func (l *zeroLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, l.zl.Debug(), msg, fields)
}

// log writes one entry. A nil event means the level is disabled.
func (l *zeroLogger) log(ctx context.Context, ev *zerolog.Event, msg string, fields []Field) {
	if ev == nil {
		return
	}

	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			ev = ev.Str("trace_id", sc.TraceID().String())
		}
	}

	for _, f := range fields {
		switch v := f.Value.(type) {
		case error:
			ev = ev.Str(f.Key, redact(f.Key, v.Error()))
		case string:
			ev = ev.Str(f.Key, redact(f.Key, v))
		default:
			if isRedactedField(f.Key) {
				ev = ev.Str(f.Key, redacted)
			} else {
				ev = ev.Interface(f.Key, v)
			}
		}
	}

	ev.Msg(msg)
}

func redact(key, value string) string {
	if isRedactedField(key) {
		return redacted
	}
	return value
}

// isRedactedField returns true if the field should be redacted.
func isRedactedField(key string) bool {
	return slices.Contains(RedactedFields, key)
}

// Ensure zeroLogger implements Logger
var _ Logger = (*zeroLogger)(nil)
