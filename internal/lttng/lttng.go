// Package lttng drives tracing sessions through the external lttng(1)
// control CLI. It owns no instrumentation: the session daemon and tracer
// consumers are part of the LTTng installation on the host.
package lttng

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tracelaunch/tracelaunch/internal/config"
	"github.com/tracelaunch/tracelaunch/internal/logger"
	"github.com/tracelaunch/tracelaunch/internal/metricsexporter"
	"github.com/tracelaunch/tracelaunch/internal/validation"
)

// SessionConfig describes one tracing session to set up.
type SessionConfig struct {
	// SessionName is the lttng session name; it doubles as the trace
	// directory name under BasePath.
	SessionName string
	// BasePath is the directory in which the session directory is created.
	// Empty means config.TracingDirectory().
	BasePath string
	// EventsUST are userspace event name patterns. Empty disables the
	// userspace domain entirely.
	EventsUST []string
	// EventsKernel are kernel event name patterns. Empty disables the
	// kernel domain entirely.
	EventsKernel []string
	// ContextFields are added to all enabled channels.
	ContextFields []string
}

// TraceDirectory returns the full output path for the session.
func (c SessionConfig) TraceDirectory() string {
	base := c.BasePath
	if base == "" {
		base = config.TracingDirectory()
	}
	return filepath.Join(base, c.SessionName)
}

// runCommand is swapped out in tests.
var runCommand = realRunCommand

// Init creates a session, enables the configured events and context fields,
// and starts tracing. It returns the trace output directory. On failure the
// half-created session is destroyed best-effort.
func Init(ctx context.Context, cfg SessionConfig) (string, error) {
	if err := validate(cfg); err != nil {
		return "", err
	}
	traceDir := cfg.TraceDirectory()

	if _, err := runCommand(ctx, "create", cfg.SessionName, "--output", traceDir); err != nil {
		metricsexporter.RecordSessionSetupError()
		return "", fmt.Errorf("create session %q: %w", cfg.SessionName, err)
	}

	if err := setupDomains(ctx, cfg); err != nil {
		// Leave no stopped half-configured session behind.
		_ = Destroy(ctx, cfg.SessionName)
		metricsexporter.RecordSessionSetupError()
		return "", err
	}

	if _, err := runCommand(ctx, "start", cfg.SessionName); err != nil {
		_ = Destroy(ctx, cfg.SessionName)
		metricsexporter.RecordSessionSetupError()
		return "", fmt.Errorf("start session %q: %w", cfg.SessionName, err)
	}

	metricsexporter.RecordSessionStarted()
	logger.Debug("Tracing session started",
		zap.String("session", cfg.SessionName),
		zap.String("trace_dir", traceDir))
	return traceDir, nil
}

func setupDomains(ctx context.Context, cfg SessionConfig) error {
	if len(cfg.EventsUST) > 0 {
		args := append([]string{"enable-event", "--session", cfg.SessionName, "--userspace"}, strings.Join(cfg.EventsUST, ","))
		if _, err := runCommand(ctx, args...); err != nil {
			return fmt.Errorf("enable userspace events: %w", err)
		}
		if err := addContexts(ctx, cfg.SessionName, "--userspace", cfg.ContextFields); err != nil {
			return err
		}
	}
	if len(cfg.EventsKernel) > 0 {
		args := append([]string{"enable-event", "--session", cfg.SessionName, "--kernel"}, strings.Join(cfg.EventsKernel, ","))
		if _, err := runCommand(ctx, args...); err != nil {
			return fmt.Errorf("enable kernel events: %w", err)
		}
		if err := addContexts(ctx, cfg.SessionName, "--kernel", cfg.ContextFields); err != nil {
			return err
		}
	}
	return nil
}

func addContexts(ctx context.Context, session, domainFlag string, fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	args := []string{"add-context", "--session", session, domainFlag}
	for _, f := range fields {
		args = append(args, "--type", f)
	}
	if _, err := runCommand(ctx, args...); err != nil {
		return fmt.Errorf("add context fields (%s): %w", strings.TrimPrefix(domainFlag, "--"), err)
	}
	return nil
}

// Fini stops and destroys a running session. Tracing data stays on disk.
func Fini(ctx context.Context, sessionName string) error {
	if _, err := runCommand(ctx, "stop", sessionName); err != nil {
		return fmt.Errorf("stop session %q: %w", sessionName, err)
	}
	if _, err := runCommand(ctx, "destroy", sessionName); err != nil {
		return fmt.Errorf("destroy session %q: %w", sessionName, err)
	}
	metricsexporter.RecordSessionStopped()
	logger.Debug("Tracing session finalized", zap.String("session", sessionName))
	return nil
}

// Destroy tears a session down without stopping it first. Used for cleanup
// paths where the session may be in any state.
func Destroy(ctx context.Context, sessionName string) error {
	if _, err := runCommand(ctx, "destroy", sessionName); err != nil {
		return fmt.Errorf("destroy session %q: %w", sessionName, err)
	}
	return nil
}

// ListSessions returns the raw output of `lttng list`, used as a liveness
// probe for the session daemon.
func ListSessions(ctx context.Context) (string, error) {
	return runCommand(ctx, "list")
}

// AppendTimestamp appends the conventional session timestamp suffix to a
// session name prefix.
func AppendTimestamp(prefix string) string {
	return prefix + "-" + time.Now().Format(config.SessionTimestampFormat)
}

func validate(cfg SessionConfig) error {
	if err := validation.ValidateSessionName(cfg.SessionName); err != nil {
		return err
	}
	if err := validation.ValidateBasePath(cfg.BasePath); err != nil {
		return err
	}
	if err := validation.ValidateEventPatterns(cfg.EventsUST); err != nil {
		return err
	}
	if err := validation.ValidateEventPatterns(cfg.EventsKernel); err != nil {
		return err
	}
	return validation.ValidateContextFields(cfg.ContextFields)
}

func realRunCommand(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.CommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, config.LTTngBin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running tracer control command",
		zap.String("bin", config.LTTngBin),
		zap.Strings("args", args))

	start := time.Now()
	err := cmd.Run()
	metricsexporter.RecordTracerCommand(args[0], time.Since(start), err)
	if err != nil {
		return stdout.String(), &CommandError{
			Args:   args,
			Stderr: strings.TrimSpace(stderr.String()),
			Err:    err,
		}
	}
	return stdout.String(), nil
}
