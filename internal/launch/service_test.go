package launch

import (
	"context"
	"runtime"
	"testing"
	"time"
)

func requireLinux(t *testing.T) {
	t.Helper()
	if runtime.GOOS != "linux" {
		t.Skip("launch service tests exercise process groups on Linux")
	}
}

func TestService_RunSingleProcess(t *testing.T) {
	requireLinux(t)
	svc := NewService()
	desc := &Description{Actions: []Action{
		&Process{Name: "truthy", Executable: "/bin/sh", Args: []string{"-c", "exit 0"}},
	}}
	code, err := svc.Run(context.Background(), desc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
}

func TestService_RunPropagatesFirstNonzeroExit(t *testing.T) {
	requireLinux(t)
	svc := NewService()
	desc := &Description{Actions: []Action{
		&Process{Name: "ok", Executable: "/bin/sh", Args: []string{"-c", "exit 0"}},
		&Process{Name: "fails", Executable: "/bin/sh", Args: []string{"-c", "exit 3"}},
	}}
	code, err := svc.Run(context.Background(), desc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 3 {
		t.Errorf("Expected exit code 3, got %d", code)
	}
}

func TestService_ProcessSeesEnvAdditions(t *testing.T) {
	requireLinux(t)
	svc := NewService()
	lctx := NewContext()
	lctx.SetEnv("TRACELAUNCH_MARKER", "set-by-launch")
	desc := &Description{Actions: []Action{
		&Process{
			Name:       "checker",
			Executable: "/bin/sh",
			Args:       []string{"-c", `test "$TRACELAUNCH_MARKER" = set-by-launch`},
		},
	}}
	code, err := svc.RunWithContext(context.Background(), lctx, desc)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if code != 0 {
		t.Error("Expected launched process to see launch env addition")
	}
}

func TestService_MissingExecutableFailsLaunch(t *testing.T) {
	requireLinux(t)
	svc := NewService()
	desc := &Description{Actions: []Action{
		&Process{Name: "ghost", Executable: "/does/not/exist"},
	}}
	if _, err := svc.Run(context.Background(), desc); err == nil {
		t.Error("Expected launch to fail for a missing executable")
	}
}

func TestService_ShutdownHandlersRunAfterProcessesExit(t *testing.T) {
	requireLinux(t)
	svc := NewService()
	lctx := NewContext()
	var processExited, shutdownRan time.Time

	desc := &Description{Actions: []Action{
		registerAction(func(ctx context.Context, lctx *Context) error {
			lctx.RegisterShutdown(func(context.Context) { shutdownRan = time.Now() })
			return nil
		}),
		&Process{Name: "sleeper", Executable: "/bin/sh", Args: []string{"-c", "sleep 0.05"}},
	}}
	if _, err := svc.RunWithContext(context.Background(), lctx, desc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	processExited = time.Now()
	if shutdownRan.IsZero() {
		t.Fatal("Shutdown handler did not run")
	}
	if shutdownRan.After(processExited) {
		t.Error("Shutdown handler ran after RunWithContext returned")
	}
}

func TestService_CancelledContextInterruptsProcesses(t *testing.T) {
	requireLinux(t)
	svc := NewService()
	svc.GracePeriod = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	desc := &Description{Actions: []Action{
		&Process{Name: "stubborn", Executable: "/bin/sh", Args: []string{"-c", "trap '' INT; sleep 30"}},
	}}
	done := make(chan struct{})
	var code int
	go func() {
		code, _ = svc.Run(ctx, desc)
		close(done)
	}()

	select {
	case <-done:
		if code == 0 {
			t.Error("Expected nonzero exit code for killed process")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Service did not stop after context cancellation")
	}
}

// registerAction adapts a function to the Action interface.
type registerAction func(ctx context.Context, lctx *Context) error

func (f registerAction) Execute(ctx context.Context, lctx *Context) error {
	return f(ctx, lctx)
}
