package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		enabled  slog.Level
		disabled slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug, slog.LevelDebug - 4},
		{"warn level", "warn", slog.LevelWarn, slog.LevelInfo},
		{"error level", "error", slog.LevelError, slog.LevelWarn},
		{"unknown falls back to info", "verbose", slog.LevelInfo, slog.LevelDebug},
		{"empty falls back to info", "", slog.LevelInfo, slog.LevelDebug},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enabled) {
				t.Errorf("expected level %s to be enabled", tt.enabled)
			}
			if logger.Enabled(ctx, tt.disabled) {
				t.Errorf("expected level %s to be disabled", tt.disabled)
			}
		})
	}
}

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "info")
	logger.Info("snapshot saved", "key", "snapshot:abc")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["msg"] != "snapshot saved" {
		t.Errorf("msg = %v, want %q", record["msg"], "snapshot saved")
	}
	if record["key"] != "snapshot:abc" {
		t.Errorf("key = %v, want %q", record["key"], "snapshot:abc")
	}
}

func TestDiscardDoesNotPanic(t *testing.T) {
	logger := Discard()
	logger.Error("should vanish", "err", "boom")
}
