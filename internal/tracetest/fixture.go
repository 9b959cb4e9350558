// Package tracetest runs processes under a fresh tracing session and gives
// tests an assertion surface over the resulting events. A fixture performs
// the baseline trace checks up front so individual tests only assert on
// their own event semantics.
package tracetest

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tracelaunch/tracelaunch/internal/config"
	"github.com/tracelaunch/tracelaunch/internal/launch"
	"github.com/tracelaunch/tracelaunch/internal/lttng"
	"github.com/tracelaunch/tracelaunch/internal/tracereader"
)

// ProcessSpec is one executable to run under the trace.
type ProcessSpec struct {
	Name       string
	Executable string
	Args       []string
	Env        []string
}

// Config describes the traced run.
type Config struct {
	// SessionNamePrefix gets a timestamp suffix to keep runs distinct.
	SessionNamePrefix string
	// EventsUST must list the exact userspace events under test; the
	// fixture checks set equality between enabled and recorded events.
	EventsUST []string
	// EventsKernel optionally lists kernel events to enable.
	EventsKernel []string
	// ContextFields defaults to the standard procname/vpid/vtid set.
	ContextFields []string
	// Processes are launched in order after the session starts.
	Processes []ProcessSpec
	// BasePath defaults to a per-run temporary directory.
	BasePath string
}

// Fixture holds the outcome of one traced run.
type Fixture struct {
	t testing.TB

	sessionName string
	traceDir    string
	exitCode    int
	events      []tracereader.Event
	eventNames  []string
}

// New runs the configured processes under a new tracing session, loads the
// resulting events, and fails the test immediately if the run or any of the
// baseline trace checks fail. Trace data is removed on cleanup unless
// TRACELAUNCH_KEEP_TRACES is set or the test failed.
func New(t testing.TB, cfg Config) *Fixture {
	t.Helper()
	require.NotEmpty(t, cfg.SessionNamePrefix, "session name prefix is required")
	require.NotEmpty(t, cfg.Processes, "at least one process is required")

	timestampBefore := time.Now().UnixNano()

	basePath := cfg.BasePath
	if basePath == "" {
		basePath = os.TempDir()
	}

	f := &Fixture{
		t:           t,
		sessionName: lttng.AppendTimestamp(cfg.SessionNamePrefix),
	}

	eventsUST := cfg.EventsUST
	if eventsUST == nil {
		eventsUST = config.DefaultEventsUST
	}
	eventsKernel := cfg.EventsKernel
	if eventsKernel == nil {
		eventsKernel = []string{}
	}

	trace, err := launch.NewTrace(launch.TraceConfig{
		SessionName:   f.sessionName,
		BasePath:      basePath,
		EventsUST:     eventsUST,
		EventsKernel:  eventsKernel,
		ContextFields: cfg.ContextFields,
	})
	require.NoError(t, err, "building trace action")

	desc := &launch.Description{Actions: []launch.Action{trace}}
	for _, spec := range cfg.Processes {
		desc.Actions = append(desc.Actions, &launch.Process{
			Name:       spec.Name,
			Executable: spec.Executable,
			Args:       spec.Args,
			Env:        spec.Env,
		})
	}

	exitCode, err := launch.NewService().Run(context.Background(), desc)
	require.NoError(t, err, "launch under trace")
	f.exitCode = exitCode
	f.traceDir = trace.TraceDirectory()
	t.Logf("trace directory: %s", f.traceDir)

	t.Cleanup(func() {
		if config.KeepTraces || t.Failed() {
			t.Logf("keeping trace directory: %s", f.traceDir)
			return
		}
		_ = tracereader.Cleanup(f.traceDir)
	})

	require.Equal(t, 0, exitCode, "traced processes must exit cleanly")

	events, err := tracereader.ReadDir(context.Background(), f.traceDir)
	require.NoError(t, err, "reading trace")
	f.events = events
	f.eventNames = tracereader.EventNames(events)

	require.NotEmpty(t, f.events, "no events found in trace")
	f.AssertEventAfterTimestamp(f.events[0], timestampBefore)

	enabled := append(append([]string{}, eventsUST...), eventsKernel...)
	if !hasWildcard(enabled) {
		f.AssertEventsSet(enabled)
	}

	names := make([]string, len(cfg.Processes))
	for i, spec := range cfg.Processes {
		name := spec.Name
		if name == "" {
			name = spec.Executable
		}
		names[i] = name
	}
	f.AssertProcessNamesExist(names...)

	return f
}

// NewFromEvents builds a fixture over pre-loaded events, for assertions on
// traces recorded elsewhere. None of the baseline run checks apply.
func NewFromEvents(t testing.TB, events []tracereader.Event) *Fixture {
	return &Fixture{
		t:          t,
		events:     events,
		eventNames: tracereader.EventNames(events),
	}
}

// Events returns all trace events in stream order.
func (f *Fixture) Events() []tracereader.Event { return f.events }

// EventNames returns the event name of every trace event, in order.
func (f *Fixture) EventNames() []string { return f.eventNames }

// SessionName returns the full session name including timestamp suffix.
func (f *Fixture) SessionName() string { return f.sessionName }

// TraceDirectory returns the trace output directory.
func (f *Fixture) TraceDirectory() string { return f.traceDir }

// ExitCode returns the launch exit code.
func (f *Fixture) ExitCode() int { return f.exitCode }

func hasWildcard(patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(p, "*") {
			return true
		}
	}
	return false
}

// trimProcname applies the kernel's procname length limit to an expected
// process name.
func trimProcname(name string) string {
	if len(name) > config.ProcnameMaxLength {
		return name[:config.ProcnameMaxLength]
	}
	return name
}
