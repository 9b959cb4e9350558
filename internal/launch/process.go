package launch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/tracelaunch/tracelaunch/internal/logger"
	"github.com/tracelaunch/tracelaunch/internal/metricsexporter"
	"github.com/tracelaunch/tracelaunch/internal/redactor"
	"github.com/tracelaunch/tracelaunch/internal/ust"
)

// Process launches one executable. The process gets its own process group so
// that signals reach any children it spawns.
type Process struct {
	// Name labels log lines; defaults to the executable.
	Name       string
	Executable string
	Args       []string
	// Env holds extra KEY=VALUE pairs on top of the launch environment.
	Env []string

	cmd       *exec.Cmd
	startedAt time.Time
	endSpan   func(exitCode int)
	waitOnce  sync.Once
	exitCode  int
}

// Execute starts the process. The caller waits for completion through Wait.
func (p *Process) Execute(ctx context.Context, lctx *Context) error {
	if p.Executable == "" {
		return fmt.Errorf("process %q has no executable", p.Name)
	}
	if p.Name == "" {
		p.Name = p.Executable
	}

	p.warnMissingTracepoints(lctx)

	cmd := exec.Command(p.Executable, p.Args...)
	cmd.Env = append(lctx.Environ(), p.Env...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe for %q: %w", p.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe for %q: %w", p.Name, err)
	}

	_, endSpan := lctx.Tracing.StartProcess(ctx, p.Name)
	p.endSpan = endSpan

	if err := cmd.Start(); err != nil {
		p.endSpan(-1)
		return fmt.Errorf("start process %q: %w", p.Name, err)
	}
	p.cmd = cmd
	p.startedAt = time.Now()
	metricsexporter.RecordProcessLaunched(p.Name)

	logger.Info("Process started",
		zap.String("process", p.Name),
		zap.Int("pid", cmd.Process.Pid),
		zap.Strings("env_additions", redactor.RedactEnv(envAdditionPairs(lctx, p))))

	go p.streamOutput(stdout, "stdout")
	go p.streamOutput(stderr, "stderr")

	lctx.addProcess(p)
	return nil
}

// warnMissingTracepoints scans the executable when a userspace tracing
// session is active; an empty scan would otherwise only surface later as an
// empty trace.
func (p *Process) warnMissingTracepoints(lctx *Context) {
	prefixes := lctx.traceProviderPrefixes()
	if len(prefixes) == 0 {
		return
	}
	path, err := exec.LookPath(p.Executable)
	if err != nil {
		return
	}
	points, err := ust.ScanExecutable(path)
	if err != nil {
		logger.Debug("Tracepoint scan failed", zap.String("process", p.Name), zap.Error(err))
		return
	}
	for _, prefix := range prefixes {
		if prefix == "" || ust.HasProvider(points, prefix) {
			return
		}
	}
	logger.Warn("Executable carries no tracepoints for the enabled providers; the trace may be empty",
		zap.String("process", p.Name),
		zap.String("executable", path),
		zap.Strings("found_providers", ust.Providers(points)),
		zap.Strings("wanted_prefixes", prefixes))
}

func (p *Process) streamOutput(r io.Reader, stream string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		logger.Info(scanner.Text(),
			zap.String("process", p.Name),
			zap.String("stream", stream))
	}
	if err := scanner.Err(); err != nil {
		logger.Debug("Process output stream ended early",
			zap.String("process", p.Name),
			zap.String("stream", stream),
			zap.Error(err))
	}
}

// Wait blocks until the process exits and returns its exit code. A process
// killed by a signal reports 128+signal, shell style.
func (p *Process) Wait() int {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		state := p.cmd.ProcessState
		switch {
		case state == nil:
			p.exitCode = -1
			logger.Debug("Process wait failed",
				zap.String("process", p.Name),
				zap.Error(err))
		case state.Exited():
			p.exitCode = state.ExitCode()
		default:
			if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				p.exitCode = 128 + int(ws.Signal())
			} else {
				p.exitCode = -1
			}
		}
		metricsexporter.RecordProcessExit(p.Name, p.exitCode, time.Since(p.startedAt))
		if p.endSpan != nil {
			p.endSpan(p.exitCode)
		}
	})
	return p.exitCode
}

// Signal delivers sig to the whole process group.
func (p *Process) Signal(sig syscall.Signal) {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	pgid := p.cmd.Process.Pid
	if err := unix.Kill(-pgid, sig); err != nil {
		logger.Debug("Signal delivery failed",
			zap.String("process", p.Name),
			zap.String("signal", sig.String()),
			zap.Error(err))
	}
}

// PID returns the process ID, or 0 before start.
func (p *Process) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func envAdditionPairs(lctx *Context, p *Process) []string {
	additions := lctx.EnvAdditions()
	pairs := make([]string, 0, len(additions)+len(p.Env))
	for k, v := range additions {
		pairs = append(pairs, k+"="+v)
	}
	pairs = append(pairs, p.Env...)
	return pairs
}
