package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tracelaunch/tracelaunch/internal/launch"
	"github.com/tracelaunch/tracelaunch/internal/lttng"
	"github.com/tracelaunch/tracelaunch/internal/tracereader"
)

// saveStubs snapshots the package-level indirection so each test can swap
// pieces out freely.
func saveStubs(t *testing.T) {
	t.Helper()
	oldInit, oldFini, oldDestroy := sessionInit, sessionFini, sessionDestroy
	oldCheck, oldRead, oldRun, oldExit := checkRequirements, readTraceDir, runService, exitFunc
	t.Cleanup(func() {
		sessionInit, sessionFini, sessionDestroy = oldInit, oldFini, oldDestroy
		checkRequirements, readTraceDir, runService, exitFunc = oldCheck, oldRead, oldRun, oldExit
	})
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCmdBuildsDescription(t *testing.T) {
	saveStubs(t)
	checkRequirements = func(context.Context) error { return nil }

	var gotDesc *launch.Description
	runService = func(_ context.Context, _ *launch.Context, desc *launch.Description) (int, error) {
		gotDesc = desc
		return 0, nil
	}

	_, err := execute(t, "run", "--", "/bin/true", "arg1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotDesc == nil || len(gotDesc.Actions) != 2 {
		t.Fatalf("expected 2 actions, got %v", gotDesc)
	}
	trace, ok := gotDesc.Actions[0].(*launch.Trace)
	if !ok {
		t.Fatalf("first action is %T, want *launch.Trace", gotDesc.Actions[0])
	}
	if trace.EventsUST != nil || trace.EventsKernel != nil {
		t.Error("unset event lists should stay nil so defaults apply")
	}
	proc, ok := gotDesc.Actions[1].(*launch.Process)
	if !ok {
		t.Fatalf("second action is %T, want *launch.Process", gotDesc.Actions[1])
	}
	if proc.Executable != "/bin/true" || len(proc.Args) != 1 || proc.Args[0] != "arg1" {
		t.Errorf("wrong process spec: %+v", proc)
	}
}

func TestRunCmdDomainFlags(t *testing.T) {
	saveStubs(t)
	checkRequirements = func(context.Context) error { return nil }

	var gotDesc *launch.Description
	runService = func(_ context.Context, _ *launch.Context, desc *launch.Description) (int, error) {
		gotDesc = desc
		return 0, nil
	}

	_, err := execute(t, "run",
		"--events-ust", "myapp:started,myapp:stopped",
		"--no-kernel",
		"--", "/bin/true")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	trace := gotDesc.Actions[0].(*launch.Trace)
	if len(trace.EventsUST) != 2 {
		t.Errorf("expected 2 UST event patterns, got %d", len(trace.EventsUST))
	}
	if trace.EventsKernel == nil || len(trace.EventsKernel) != 0 {
		t.Error("--no-kernel should pass an explicit empty kernel event list")
	}
}

func TestRunCmdWiresTracingIntoLaunchContext(t *testing.T) {
	saveStubs(t)
	checkRequirements = func(context.Context) error { return nil }

	var gotCtx *launch.Context
	runService = func(_ context.Context, lctx *launch.Context, _ *launch.Description) (int, error) {
		gotCtx = lctx
		return 0, nil
	}

	if _, err := execute(t, "run", "--", "/bin/true"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if gotCtx == nil {
		t.Fatal("service did not receive a launch context")
	}
	if gotCtx.Tracing == nil {
		t.Error("launch context has no tracing manager")
	}
}

func TestRunCmdNonzeroExit(t *testing.T) {
	saveStubs(t)
	checkRequirements = func(context.Context) error { return nil }
	runService = func(context.Context, *launch.Context, *launch.Description) (int, error) { return 3, nil }

	exitCode := -1
	exitFunc = func(code int) { exitCode = code }

	if _, err := execute(t, "run", "--", "/bin/false"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if exitCode != 3 {
		t.Errorf("exit code = %d, want 3", exitCode)
	}
}

func TestRunCmdPreflightFailure(t *testing.T) {
	saveStubs(t)
	checkRequirements = func(context.Context) error { return errors.New("no tracer") }
	runService = func(context.Context, *launch.Context, *launch.Description) (int, error) {
		t.Fatal("service must not run when the preflight fails")
		return 0, nil
	}

	if _, err := execute(t, "run", "--", "/bin/true"); err == nil {
		t.Fatal("expected preflight error")
	}
}

func TestStartCmdDefaults(t *testing.T) {
	saveStubs(t)
	checkRequirements = func(context.Context) error { return nil }

	var gotCfg lttng.SessionConfig
	sessionInit = func(_ context.Context, cfg lttng.SessionConfig) (string, error) {
		gotCfg = cfg
		return "/tmp/traces/" + cfg.SessionName, nil
	}

	out, err := execute(t, "start", "mysession")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.HasPrefix(gotCfg.SessionName, "mysession-") {
		t.Errorf("expected timestamp suffix, got %q", gotCfg.SessionName)
	}
	if len(gotCfg.EventsUST) == 0 || len(gotCfg.EventsKernel) == 0 || len(gotCfg.ContextFields) == 0 {
		t.Errorf("defaults not applied: %+v", gotCfg)
	}
	if !strings.Contains(out, "trace directory: /tmp/traces/") {
		t.Errorf("missing trace directory in output:\n%s", out)
	}
}

func TestStartCmdNoDomains(t *testing.T) {
	saveStubs(t)
	checkRequirements = func(context.Context) error { return nil }

	var gotCfg lttng.SessionConfig
	sessionInit = func(_ context.Context, cfg lttng.SessionConfig) (string, error) {
		gotCfg = cfg
		return "/tmp/x", nil
	}

	_, err := execute(t, "start", "mysession", "--no-ust", "--no-kernel", "--append-timestamp=false")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if gotCfg.SessionName != "mysession" {
		t.Errorf("session name = %q, want mysession", gotCfg.SessionName)
	}
	if len(gotCfg.EventsUST) != 0 || len(gotCfg.EventsKernel) != 0 {
		t.Errorf("domains should be disabled: %+v", gotCfg)
	}
}

func TestStopAndDestroyCmds(t *testing.T) {
	saveStubs(t)

	var finished, destroyed string
	sessionFini = func(_ context.Context, name string) error {
		finished = name
		return nil
	}
	sessionDestroy = func(_ context.Context, name string) error {
		destroyed = name
		return nil
	}

	if _, err := execute(t, "stop", "sess-a"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := execute(t, "destroy", "sess-b"); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if finished != "sess-a" || destroyed != "sess-b" {
		t.Errorf("stop/destroy hit wrong sessions: %q, %q", finished, destroyed)
	}
}

func TestReadCmd(t *testing.T) {
	saveStubs(t)
	readTraceDir = func(_ context.Context, dir string) ([]tracereader.Event, error) {
		if dir != "/tmp/traces/mysession" {
			t.Errorf("read wrong directory: %q", dir)
		}
		return []tracereader.Event{
			{Name: "myapp:started", Timestamp: 1, Procname: "myapp", VPID: 7},
			{Name: "myapp:stopped", Timestamp: 2, Procname: "myapp", VPID: 7},
		}, nil
	}

	out, err := execute(t, "read", "/tmp/traces/mysession", "--events", "myapp:*")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"mysession", "Total events: 2", "myapp (pid 7)", "All enabled events recorded"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestReadCmdExpectations(t *testing.T) {
	saveStubs(t)
	readTraceDir = func(context.Context, string) ([]tracereader.Event, error) {
		return []tracereader.Event{
			{Name: "myapp:started", Timestamp: 1, Procname: "myapp"},
		}, nil
	}

	if _, err := execute(t, "read", "/tmp/t", "--expect", "myapp:started"); err != nil {
		t.Errorf("met expectation should pass: %v", err)
	}

	_, err := execute(t, "read", "/tmp/t", "--expect", "myapp:started,myapp:stopped")
	if err == nil || !strings.Contains(err.Error(), "myapp:stopped") {
		t.Errorf("missing expected event should fail with its name, got: %v", err)
	}
}

func TestCheckCmdJSON(t *testing.T) {
	saveStubs(t)
	checkRequirements = func(context.Context) error { return nil }

	out, err := execute(t, "check", "--json")
	if err != nil {
		t.Fatalf("check --json: %v", err)
	}
	var rep envReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if rep.GoVersion == "" || rep.LTTngBin == "" {
		t.Errorf("incomplete report: %+v", rep)
	}
}
