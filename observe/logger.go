package observe

import (
	"context"
	"io"
	"os"
	"slices"

	"github.com/rs/zerolog"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level. Unknown values map to LevelInfo.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// structuredLogger writes one JSON object per line through zerolog.
type structuredLogger struct {
	zl zerolog.Logger
}

// NewLogger creates a new structured logger with the given level writing to stderr.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a new structured logger with a custom writer.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	zl := zerolog.New(zerolog.SyncWriter(w)).
		Level(ParseLogLevel(level).zerolog()).
		With().
		Timestamp().
		Logger()
	return &structuredLogger{zl: zl}
}

// WithMutation returns a logger with mutation context attached.
func (l *structuredLogger) WithMutation(meta MutationMeta) Logger {
	c := l.zl.With().Str("mutation.name", meta.Name)
	if meta.EntryID != "" {
		c = c.Str("mutation.entry", meta.EntryID)
	}
	if meta.Key != "" {
		c = c.Str("mutation.key", meta.Key)
	}
	if meta.Task != "" {
		c = c.Str("mutation.task", meta.Task)
	}
	return &structuredLogger{zl: c.Logger()}
}

func (l *structuredLogger) Info(_ context.Context, msg string, fields ...Field) {
	l.write(l.zl.Info(), msg, fields)
}

func (l *structuredLogger) Warn(_ context.Context, msg string, fields ...Field) {
	l.write(l.zl.Warn(), msg, fields)
}

func (l *structuredLogger) Error(_ context.Context, msg string, fields ...Field) {
	l.write(l.zl.Error(), msg, fields)
}

func (l *structuredLogger) Debug(_ context.Context, msg string, fields ...Field) {
	l.write(l.zl.Debug(), msg, fields)
}

// write is a no-op when ev is nil (level filtered by zerolog).
func (l *structuredLogger) write(ev *zerolog.Event, msg string, fields []Field) {
	if ev == nil {
		return
	}
	for _, f := range fields {
		if isRedactedField(f.Key) {
			ev = ev.Str(f.Key, "[REDACTED]")
			continue
		}
		if err, ok := f.Value.(error); ok {
			ev = ev.Str(f.Key, err.Error())
			continue
		}
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Str("msg", msg).Send()
}

// RedactedFields lists field keys whose values are never written. Mutation
// variables carry request payloads, so "vars" is among them.
var RedactedFields = []string{
	"vars",
	"input",
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"credential",
}

func isRedactedField(key string) bool {
	return slices.Contains(RedactedFields, key)
}
