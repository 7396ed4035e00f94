package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriterJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter(&buf, "warn", "json").Warn("channel failed", "channel", "guardian")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "channel failed" || record["channel"] != "guardian" {
		t.Fatalf("unexpected record %v", record)
	}
}

func TestAutoFormatFallsBackToJSONForNonTerminals(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithWriter(&buf, "info", "auto").Info("hello")
	if !strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("expected JSON for a buffer, got %q", buf.String())
	}
}

func TestTextFormatAndLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "error", "text")
	logger.Info("dropped")
	logger.Error("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "msg=kept") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	if levelFromString("WARNING") != slog.LevelWarn || levelFromString("") != slog.LevelInfo || levelFromString("trace") != slog.LevelDebug {
		t.Fatalf("unexpected level mapping")
	}
}
