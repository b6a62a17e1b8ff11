package logging

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestSetLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"INFO", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"invalid", LevelInfo}, // defaults to info
		{"", LevelInfo},        // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			l := &Logger{}
			l.SetLevelFromString(tt.input)
			if l.level != tt.expected {
				t.Errorf("SetLevelFromString(%q) = %v, want %v", tt.input, l.level, tt.expected)
			}
		})
	}
}

func TestLoggingOutput(t *testing.T) {
	var buf bytes.Buffer
	testLogger := &Logger{
		level:  LevelDebug,
		logger: log.New(&buf, "", 0),
	}

	buf.Reset()
	testLogger.Info("test info")
	if !strings.Contains(buf.String(), "[INFO]") || !strings.Contains(buf.String(), "test info") {
		t.Errorf("Info() output = %q, want to contain [INFO] and 'test info'", buf.String())
	}

	buf.Reset()
	testLogger.Warn("test warn %d", 1)
	if !strings.Contains(buf.String(), "[WARN]") || !strings.Contains(buf.String(), "test warn 1") {
		t.Errorf("Warn() output = %q, want to contain [WARN] and 'test warn 1'", buf.String())
	}

	buf.Reset()
	testLogger.Error("test error")
	if !strings.Contains(buf.String(), "[ERROR]") {
		t.Errorf("Error() output = %q, want to contain [ERROR]", buf.String())
	}

	testLogger.SetLevel(LevelWarn)
	buf.Reset()
	testLogger.Info("should not appear")
	if buf.Len() != 0 {
		t.Errorf("Info() below the configured level should produce no output, got %q", buf.String())
	}
}

func TestDefaultIsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Error("Default() should return the same logger instance on every call")
	}
}

func TestPackageLevelHelpersUseDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	Default().logger = log.New(&buf, "", 0)
	Default().SetLevel(LevelInfo)
	t.Cleanup(func() {
		Default().logger = log.New(bytes.NewBuffer(nil), "", 0)
		Default().SetLevel(LevelInfo)
	})

	buf.Reset()
	Info("via package func")
	if !strings.Contains(buf.String(), "[INFO]") {
		t.Errorf("Info() = %q, want to contain [INFO]", buf.String())
	}

	buf.Reset()
	Warn("via package func")
	if !strings.Contains(buf.String(), "[WARN]") {
		t.Errorf("Warn() = %q, want to contain [WARN]", buf.String())
	}

	buf.Reset()
	Error("via package func")
	if !strings.Contains(buf.String(), "[ERROR]") {
		t.Errorf("Error() = %q, want to contain [ERROR]", buf.String())
	}

	buf.Reset()
	SetLevelFromString("error")
	Warn("should be suppressed")
	if buf.Len() != 0 {
		t.Errorf("Warn() after SetLevelFromString(\"error\") should produce no output, got %q", buf.String())
	}
}
