package validation

import (
	"strings"
	"testing"
)

func TestValidateSessionName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "session-test", false},
		{"with timestamp", "session-test-20260826120000", false},
		{"dots and underscores", "my.session_1", false},
		{"empty", "", true},
		{"path separator", "a/b", true},
		{"leading dash", "-session", true},
		{"trailing dot", "session.", true},
		{"too long", strings.Repeat("a", 201), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEventPattern(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"kernel event", "sched_switch", false},
		{"provider wildcard", "ros2:*", false},
		{"full wildcard", "*", false},
		{"profiling event", "lttng_ust_cyg_profile_fast:func_entry", false},
		{"empty", "", true},
		{"shell injection", "foo;rm -rf", true},
		{"spaces", "foo bar", true},
		{"too long", strings.Repeat("x", 257), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEventPattern(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEventPattern(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateContextField(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"procname", "procname", false},
		{"vpid", "vpid", false},
		{"perf counter", "perf:thread:instructions", false},
		{"empty", "", true},
		{"uppercase", "Procname", true},
		{"wildcard", "proc*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContextField(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateContextField(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateBasePath(t *testing.T) {
	if err := ValidateBasePath(""); err != nil {
		t.Errorf("Expected empty base path to be allowed, got %v", err)
	}
	if err := ValidateBasePath("/tmp/traces"); err != nil {
		t.Errorf("Expected absolute path to be allowed, got %v", err)
	}
	if err := ValidateBasePath("relative/path"); err == nil {
		t.Error("Expected relative path to be rejected")
	}
}

func TestValidateEventPatterns(t *testing.T) {
	if err := ValidateEventPatterns([]string{"sched_switch", "ros2:*"}); err != nil {
		t.Errorf("Expected valid patterns to pass, got %v", err)
	}
	if err := ValidateEventPatterns([]string{"ok", "not ok"}); err == nil {
		t.Error("Expected invalid pattern in list to be rejected")
	}
}
