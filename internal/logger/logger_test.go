package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	SetLevel("debug")
	if !atomicLevel.Enabled(zapcore.DebugLevel) {
		t.Error("Expected debug level to be enabled after SetLevel(\"debug\")")
	}
	SetLevel("error")
	if atomicLevel.Enabled(zapcore.InfoLevel) {
		t.Error("Expected info level to be disabled after SetLevel(\"error\")")
	}
	SetLevel("info")
}

func TestLoggerNotNil(t *testing.T) {
	if Logger() == nil {
		t.Fatal("Logger() returned nil")
	}
}
