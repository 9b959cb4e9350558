package tracereader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tracelaunch/tracelaunch/internal/config"
	"github.com/tracelaunch/tracelaunch/internal/logger"
	"github.com/tracelaunch/tracelaunch/internal/metricsexporter"
)

// parseWarnLimiter keeps a noisy malformed trace from flooding the log.
var parseWarnLimiter = rate.NewLimiter(rate.Limit(1), 5)

// runConverter is swapped out in tests.
var runConverter = realRunConverter

// ReadDir converts the trace at traceDir and returns its events in stream
// order. The caller is expected to read only finalized traces (after the
// session was stopped and destroyed).
func ReadDir(ctx context.Context, traceDir string) ([]Event, error) {
	if _, err := os.Stat(traceDir); err != nil {
		return nil, fmt.Errorf("trace directory: %w", err)
	}

	start := time.Now()
	defer func() { metricsexporter.RecordTraceReadDuration(time.Since(start)) }()

	output, err := runConverter(ctx, traceDir)
	if err != nil {
		return nil, err
	}

	var events []Event
	scanner := bufio.NewScanner(strings.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		event, err := parseLine(line)
		if err != nil {
			metricsexporter.RecordEventSkipped()
			if parseWarnLimiter.Allow() {
				logger.Warn("Skipping unparseable trace line",
					zap.String("line", truncate(line, 200)),
					zap.Error(err))
			}
			continue
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read converter output: %w", err)
	}
	metricsexporter.RecordEventsRead(len(events))
	return events, nil
}

func realRunConverter(ctx context.Context, traceDir string) (string, error) {
	cmd := exec.CommandContext(ctx, config.BabeltraceBin, "convert", traceDir, "--clock-seconds")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if execErr, ok := err.(*exec.Error); ok {
			return "", fmt.Errorf(
				"trace converter %q not found (%w); install babeltrace2 or set TRACELAUNCH_BABELTRACE_BIN",
				config.BabeltraceBin, execErr)
		}
		return "", fmt.Errorf("convert trace %q: %w: %s",
			traceDir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Cleanup removes the trace directory tree.
func Cleanup(traceDir string) error {
	if traceDir == "" || traceDir == "/" {
		return fmt.Errorf("refusing to remove %q", traceDir)
	}
	return os.RemoveAll(traceDir)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
