package main

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracelaunch/tracelaunch/internal/config"
	"github.com/tracelaunch/tracelaunch/internal/launch"
	"github.com/tracelaunch/tracelaunch/internal/logger"
	"github.com/tracelaunch/tracelaunch/internal/lttng"
	"github.com/tracelaunch/tracelaunch/internal/metricsexporter"
	"github.com/tracelaunch/tracelaunch/internal/system"
	"github.com/tracelaunch/tracelaunch/internal/tracereader"
	"github.com/tracelaunch/tracelaunch/internal/tracing"
)

var (
	logLevel            string
	enableMetrics       bool
	enableTracing       bool
	tracingOTLPEndpoint string
	tracingSampleRate   float64

	// Indirection for tests.
	sessionInit       func(context.Context, lttng.SessionConfig) (string, error)
	sessionFini       func(context.Context, string) error
	sessionDestroy    func(context.Context, string) error
	checkRequirements func(context.Context) error
	readTraceDir      func(context.Context, string) ([]tracereader.Event, error)
	runService        func(context.Context, *launch.Context, *launch.Description) (int, error)
	exitFunc          func(int)
)

func init() {
	sessionInit = lttng.Init
	sessionFini = lttng.Fini
	sessionDestroy = lttng.Destroy
	checkRequirements = system.CheckRequirements
	readTraceDir = tracereader.ReadDir
	runService = func(ctx context.Context, lctx *launch.Context, desc *launch.Description) (int, error) {
		return launch.NewService().RunWithContext(ctx, lctx, desc)
	}
	exitFunc = os.Exit
}

func main() {
	defer logger.Sync()
	if err := newRootCmd().Execute(); err != nil {
		logger.Error("Command execution failed", zap.Error(err))
		exitFunc(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tracelaunch",
		Short: "Launch processes under LTTng tracing sessions",
		Long: `tracelaunch sets up LTTng tracing sessions around launched processes,
wires in profiling and memory instrumentation preload libraries, and reads
the resulting traces back for inspection.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (debug, info, warn, error, fatal). Overrides TRACELAUNCH_LOG_LEVEL environment variable")
	rootCmd.PersistentFlags().BoolVar(&enableMetrics, "metrics", false, "Enable Prometheus metrics server")
	rootCmd.PersistentFlags().BoolVar(&enableTracing, "tracing", config.DefaultTracingEnabled, "Report the launch lifecycle as OpenTelemetry spans")
	rootCmd.PersistentFlags().StringVar(&tracingOTLPEndpoint, "tracing-otlp-endpoint", config.DefaultOTLPEndpoint, "OpenTelemetry OTLP endpoint")
	rootCmd.PersistentFlags().Float64Var(&tracingSampleRate, "tracing-sample-rate", config.DefaultTracingSampleRate, "Tracing sample rate (0.0-1.0)")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if logLevel != "" {
			logger.SetLevel(logLevel)
		}
		if enableTracing {
			config.TracingEnabled = true
			if tracingOTLPEndpoint != "" {
				config.OTLPEndpoint = tracingOTLPEndpoint
			}
			if tracingSampleRate >= 0.0 && tracingSampleRate <= 1.0 {
				config.TracingSampleRate = tracingSampleRate
			}
		}
	}

	rootCmd.AddCommand(
		newLaunchCmd(),
		newRunCmd(),
		newStartCmd(),
		newStopCmd(),
		newDestroyCmd(),
		newCheckCmd(),
		newReadCmd(),
	)
	return rootCmd
}

// executeLaunch runs a description with the preflight check, optional
// metrics endpoint, and lifecycle spans around it. A nonzero process exit
// code becomes the command's own exit code.
func executeLaunch(ctx context.Context, desc *launch.Description) error {
	if err := checkRequirements(ctx); err != nil {
		return err
	}
	system.CheckKernelTracing()

	if enableMetrics {
		metricsServer := metricsexporter.StartServer()
		defer metricsServer.Shutdown()
	}

	tracingManager, err := tracing.NewManager()
	if err != nil {
		logger.Warn("Failed to create tracing manager", zap.Error(err))
		tracingManager = nil
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracingManager.Shutdown(shutdownCtx)
	}()

	processCount := 0
	for _, action := range desc.Actions {
		if _, ok := action.(*launch.Process); ok {
			processCount++
		}
	}

	ctx, endLaunch := tracingManager.StartLaunch(ctx, processCount)

	lctx := launch.NewContext()
	lctx.Tracing = tracingManager

	exitCode, err := runService(ctx, lctx, desc)
	endLaunch(exitCode, err)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		logger.Warn("Launch finished with nonzero exit code", zap.Int("exit_code", exitCode))
		exitFunc(exitCode)
	}
	return nil
}
