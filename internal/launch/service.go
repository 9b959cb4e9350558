package launch

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tracelaunch/tracelaunch/internal/config"
	"github.com/tracelaunch/tracelaunch/internal/logger"
)

// Service executes launch descriptions.
type Service struct {
	// GracePeriod is how long processes get between SIGINT and SIGKILL
	// when the launch is interrupted.
	GracePeriod time.Duration
}

// NewService returns a Service with the default grace period.
func NewService() *Service {
	return &Service{GracePeriod: 5 * time.Second}
}

// Run executes all actions of the description, waits for every started
// process, then fires shutdown handlers in reverse order. It returns the
// first nonzero process exit code, or zero.
//
// SIGINT/SIGTERM are forwarded to the process groups of all launched
// processes; processes that outlive the grace period are killed.
func (s *Service) Run(ctx context.Context, desc *Description) (int, error) {
	lctx := NewContext()
	return s.RunWithContext(ctx, lctx, desc)
}

// RunWithContext is Run with a caller-provided launch context, used when the
// caller needs access to launch state (trace directory, processes) afterward.
func (s *Service) RunWithContext(ctx context.Context, lctx *Context, desc *Description) (int, error) {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		lctx.runShutdown(shutdownCtx)
	}()

	for _, action := range desc.Actions {
		if err := action.Execute(sigCtx, lctx); err != nil {
			s.interrupt(lctx)
			s.waitAll(lctx)
			return -1, err
		}
	}

	interrupted := make(chan struct{})
	go func() {
		select {
		case <-sigCtx.Done():
			if ctx.Err() == nil {
				logger.Info("Interrupt received, stopping launched processes")
			}
			s.interrupt(lctx)
		case <-interrupted:
		}
	}()

	exitCode := s.waitAll(lctx)
	close(interrupted)
	return exitCode, nil
}

func (s *Service) interrupt(lctx *Context) {
	procs := lctx.Processes()
	for _, p := range procs {
		p.Signal(syscall.SIGINT)
	}
	if len(procs) == 0 {
		return
	}
	go func() {
		time.Sleep(s.GracePeriod)
		for _, p := range procs {
			p.Signal(syscall.SIGKILL)
		}
	}()
}

func (s *Service) waitAll(lctx *Context) int {
	exitCode := 0
	for _, p := range lctx.Processes() {
		code := p.Wait()
		logger.Info("Process exited",
			zap.String("process", p.Name),
			zap.Int("exit_code", code))
		if code != 0 && exitCode == 0 {
			exitCode = code
		}
	}
	return exitCode
}
