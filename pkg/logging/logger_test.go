package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", "json", &buf)

	logger.Info("appointment created", "doctor_id", "doc-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "appointment created" {
		t.Errorf("unexpected msg: %v", record["msg"])
	}
	if record["doctor_id"] != "doc-1" {
		t.Errorf("unexpected doctor_id: %v", record["doctor_id"])
	}
}

func TestNewWithWriterText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("debug", "text", &buf)

	logger.Debug("slot grid computed", "slots", 16)

	out := buf.String()
	if !strings.Contains(out, "slot grid computed") || !strings.Contains(out, "slots=16") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestWithAttachesAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", "json", &buf).With("session_id", "sess-9")

	logger.Info("participant joined")

	if !strings.Contains(buf.String(), `"session_id":"sess-9"`) {
		t.Errorf("expected session_id attribute, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("warn", "json", &buf)

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record emitted at warn level: %q", buf.String())
	}

	logger.Warn("should be kept")
	if buf.Len() == 0 {
		t.Fatal("warn record dropped at warn level")
	}
}
