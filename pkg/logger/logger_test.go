package logger

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
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		logFunc  func(string, ...any)
		logMsg   string
		expected bool
	}{
		{"Debug when debug level", "debug", Debug, "debug message", true},
		{"Debug when info level", "info", Debug, "debug message", false},
		{"Warn when info level", "info", Warn, "warn message", true},
		{"Info when error level", "error", Info, "info message", false},
		{"Error when error level", "error", Error, "error message", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetDefault(New(tt.logLevel, &buf))

			tt.logFunc(tt.logMsg)
			output := buf.String()

			if tt.expected && !strings.Contains(output, tt.logMsg) {
				t.Errorf("Expected log output to contain '%s', got: %s", tt.logMsg, output)
			}
			if !tt.expected && strings.Contains(output, tt.logMsg) {
				t.Errorf("Expected log output NOT to contain '%s', but it did: %s", tt.logMsg, output)
			}
		})
	}
}

func TestNewWithFormat(t *testing.T) {
	var jsonBuf, textBuf bytes.Buffer
	NewWithFormat("json", "info", &jsonBuf).Info("hello", "generation", 3)
	NewWithFormat("text", "info", &textBuf).Info("hello", "generation", 3)

	var entry map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &entry); err != nil {
		t.Fatalf("json format did not produce JSON: %v (%s)", err, jsonBuf.String())
	}
	if entry["generation"] != float64(3) {
		t.Fatalf("expected generation 3, got %v", entry["generation"])
	}
	if !strings.Contains(textBuf.String(), "generation=3") {
		t.Fatalf("text format missing key=value pair: %s", textBuf.String())
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New("info", &buf))

	Component("evaluator").Info("worker started", "worker", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log output: %v", err)
	}
	if entry["component"] != "evaluator" {
		t.Errorf("Expected component 'evaluator', got '%v'", entry["component"])
	}
	if entry["worker"] != float64(2) {
		t.Errorf("Expected worker 2, got '%v'", entry["worker"])
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(New("info", &buf))

	With("run_id", "abc").Info("search started")

	output := buf.String()
	if !strings.Contains(output, "run_id") || !strings.Contains(output, "abc") {
		t.Errorf("Expected run_id attribute in output: %s", output)
	}
}
