package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/razvandimescu/markview/internal/config"
)

func TestNew_TextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogConfig{Level: "warn", Format: config.LogFormatText})

	logger.Info("hidden")
	logger.Warn("shown", "path", "notes.md")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "path=notes.md") {
		t.Errorf("expected warn record with attribute, got: %s", out)
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogConfig{Level: "debug", Format: config.LogFormatJSON})
	logger.Debug("document rendered", "bytes", 42)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON record, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "document rendered" {
		t.Errorf("msg = %v", rec["msg"])
	}
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, config.LogConfig{Level: "nope", Format: config.LogFormatText})
	logger.Debug("dropped")
	logger.Info("kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
