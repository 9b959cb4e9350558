package validation

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tracelaunch/tracelaunch/internal/config"
)

var (
	sessionNameRegex  = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_.-]*[a-zA-Z0-9])?$`)
	eventPatternRegex = regexp.MustCompile(`^[a-zA-Z0-9_*:.-]+$`)
	contextFieldRegex = regexp.MustCompile(`^[a-z][a-z0-9_:.-]*$`)
)

// ValidateSessionName checks that a tracing session name is usable both as an
// lttng session name and as a directory component of the trace path.
func ValidateSessionName(name string) error {
	if name == "" {
		return fmt.Errorf("session name cannot be empty")
	}
	if len(name) > config.MaxSessionNameLength {
		return fmt.Errorf("session name exceeds maximum length of %d characters", config.MaxSessionNameLength)
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("session name cannot contain path separators")
	}
	if !sessionNameRegex.MatchString(name) {
		return fmt.Errorf("session name must be alphanumeric with '-', '_' or '.' separators")
	}
	return nil
}

// ValidateEventPattern checks a tracepoint name or wildcard pattern, e.g.
// "sched_switch", "ros2:rcl_publish" or "ros2:*".
func ValidateEventPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("event pattern cannot be empty")
	}
	if len(pattern) > config.MaxEventPatternLength {
		return fmt.Errorf("event pattern exceeds maximum length of %d characters", config.MaxEventPatternLength)
	}
	if !eventPatternRegex.MatchString(pattern) {
		return fmt.Errorf("event pattern %q contains invalid characters", pattern)
	}
	return nil
}

// ValidateContextField checks a context field name, e.g. "procname" or
// "perf:thread:instructions".
func ValidateContextField(name string) error {
	if name == "" {
		return fmt.Errorf("context field name cannot be empty")
	}
	if len(name) > config.MaxContextFieldLength {
		return fmt.Errorf("context field name exceeds maximum length of %d characters", config.MaxContextFieldLength)
	}
	if !contextFieldRegex.MatchString(name) {
		return fmt.Errorf("context field name %q contains invalid characters", name)
	}
	return nil
}

// ValidateBasePath checks the base directory for trace output. Empty means
// "use the default tracing directory" and is allowed.
func ValidateBasePath(path string) error {
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("base path must be absolute, got %q", path)
	}
	return nil
}

// ValidateEventPatterns validates every pattern in a list.
func ValidateEventPatterns(patterns []string) error {
	for _, p := range patterns {
		if err := ValidateEventPattern(p); err != nil {
			return err
		}
	}
	return nil
}

// ValidateContextFields validates every context field name in a list.
func ValidateContextFields(names []string) error {
	for _, n := range names {
		if err := ValidateContextField(n); err != nil {
			return err
		}
	}
	return nil
}
