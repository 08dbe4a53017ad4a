package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}
	return entry
}

// TestLogger_IncludesMutationFields verifies mutation fields are present in log output.
func TestLogger_IncludesMutationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	meta := MutationMeta{
		Name:    "deleteContact",
		EntryID: "m1",
		Key:     "contact-7",
		Task:    "3f1c",
	}
	logger.WithMutation(meta).Info(context.Background(), "test message")

	entry := decodeLine(t, &buf)

	want := map[string]string{
		"mutation.name":  "deleteContact",
		"mutation.entry": "m1",
		"mutation.key":   "contact-7",
		"mutation.task":  "3f1c",
		"msg":            "test message",
		"level":          "info",
	}
	for k, v := range want {
		if got, ok := entry[k].(string); !ok || got != v {
			t.Errorf("expected %s=%q, got %v", k, v, entry[k])
		}
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a time field")
	}
}

// TestLogger_OmitsEmptyMeta verifies optional meta fields are omitted.
func TestLogger_OmitsEmptyMeta(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("info", &buf).WithMutation(MutationMeta{Name: "only"}).Info(context.Background(), "x")

	entry := decodeLine(t, &buf)
	for _, k := range []string{"mutation.entry", "mutation.key", "mutation.task"} {
		if _, ok := entry[k]; ok {
			t.Errorf("expected %s to be omitted", k)
		}
	}
}

// TestLogger_IncludesDuration verifies numeric fields survive.
func TestLogger_IncludesDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "test message", Field{Key: "duration_ms", Value: 50.5})

	entry := decodeLine(t, &buf)
	if v, ok := entry["duration_ms"].(float64); !ok || v != 50.5 {
		t.Errorf("expected duration_ms=50.5, got %v", entry["duration_ms"])
	}
}

// TestLogger_ErrorValues verifies error values are rendered as strings.
func TestLogger_ErrorValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Error(context.Background(), "execution failed", Field{Key: "error", Value: errors.New("connection timeout")})

	entry := decodeLine(t, &buf)
	if v, ok := entry["level"].(string); !ok || v != "error" {
		t.Errorf("expected level='error', got %v", entry["level"])
	}
	if v, ok := entry["error"].(string); !ok || v != "connection timeout" {
		t.Errorf("expected error='connection timeout', got %v", entry["error"])
	}
}

// TestLogger_VarsRedactedByDefault verifies mutation variables are not logged.
func TestLogger_VarsRedactedByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "mutation executed",
		Field{Key: "vars", Value: map[string]string{"password": "secret_password_123"}},
		Field{Key: "token", Value: "abc"},
	)

	output := buf.String()
	if strings.Contains(output, "secret_password_123") || strings.Contains(output, "\"abc\"") {
		t.Errorf("sensitive values should be redacted, got: %s", output)
	}
	if !strings.Contains(output, "[REDACTED]") {
		t.Errorf("expected redaction marker, got: %s", output)
	}
}

// TestLogger_LevelFiltering verifies log level filtering.
func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", &buf)

	logger.Info(context.Background(), "info message")
	logger.Debug(context.Background(), "debug message")
	if buf.Len() != 0 {
		t.Errorf("info/debug should be filtered when level is warn, got: %s", buf.String())
	}

	logger.Warn(context.Background(), "warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Error("warn message should pass through when level is warn")
	}
}

// TestLogger_DebugLevel verifies debug entries are written at debug level.
func TestLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerWithWriter("debug", &buf).Debug(context.Background(), "debug message")

	entry := decodeLine(t, &buf)
	if v, ok := entry["level"].(string); !ok || v != "debug" {
		t.Errorf("expected level='debug', got %v", entry["level"])
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug": LevelDebug,
		"info":  LevelInfo,
		"warn":  LevelWarn,
		"error": LevelError,
		"":      LevelInfo,
		"loud":  LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if LevelWarn.String() != "warn" {
		t.Errorf("expected 'warn', got %q", LevelWarn.String())
	}
}
