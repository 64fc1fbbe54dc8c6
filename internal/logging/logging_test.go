package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: WarnLevel, Format: HumanFormat, Output: &buf})

	logger.Debug("debug message", nil)
	logger.Info("info message", nil)
	logger.Warn("warn message", nil)
	logger.Error("error message", nil)

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn should be filtered, got: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("warn and error should be logged, got: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: DebugLevel, Format: JSONFormat, Output: &buf})

	logger.Info("hello", map[string]interface{}{"key": "value"})

	var entry struct {
		Level   string                 `json:"level"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry.Level != "info" {
		t.Errorf("Level = %q, want info", entry.Level)
	}
	if entry.Message != "hello" {
		t.Errorf("Message = %q, want hello", entry.Message)
	}
	if entry.Fields["key"] != "value" {
		t.Errorf("Fields[key] = %v, want value", entry.Fields["key"])
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: DebugLevel, Format: JSONFormat, Output: &buf})
	child := logger.With(map[string]interface{}{"component": "worker"})

	child.Info("started", map[string]interface{}{"unit": "abc"})

	var entry struct {
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry.Fields["component"] != "worker" {
		t.Errorf("base field missing, fields = %v", entry.Fields)
	}
	if entry.Fields["unit"] != "abc" {
		t.Errorf("call field missing, fields = %v", entry.Fields)
	}

	buf.Reset()
	logger.Info("plain", nil)
	if strings.Contains(buf.String(), "component") {
		t.Error("parent logger should not carry child fields")
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != DebugLevel {
		t.Errorf("ParseLevel(debug) = %v", got)
	}
	if got := ParseLevel("bogus"); got != InfoLevel {
		t.Errorf("ParseLevel(bogus) = %v, want info", got)
	}
}
