package main

import (
	"github.com/spf13/cobra"

	"github.com/tracelaunch/tracelaunch/internal/launch"
	"github.com/tracelaunch/tracelaunch/internal/launch/frontend"
)

func newLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch <file>",
		Short: "Run the processes described in a launch file under a tracing session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := frontend.Load(args[0])
			if err != nil {
				return err
			}
			return executeLaunch(cmd.Context(), desc)
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		sessionName     string
		appendTimestamp bool
		basePath        string
		eventsUST       []string
		eventsKernel    []string
		contextFields   []string
		profileFast     bool
		noUST           bool
		noKernel        bool
	)

	cmd := &cobra.Command{
		Use:   "run [flags] -- <executable> [args...]",
		Short: "Run one command under a tracing session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := launch.TraceConfig{
				SessionName:     sessionName,
				AppendTimestamp: appendTimestamp,
				BasePath:        basePath,
				ProfileFast:     profileFast,
			}
			// Unset lists stay nil so the configured defaults apply;
			// --no-ust / --no-kernel pass an explicit empty list, which
			// disables the domain.
			if cmd.Flags().Changed("events-ust") {
				cfg.EventsUST = eventsUST
			}
			if cmd.Flags().Changed("events-kernel") {
				cfg.EventsKernel = eventsKernel
			}
			if cmd.Flags().Changed("context-fields") {
				cfg.ContextFields = contextFields
			}
			if noUST {
				cfg.EventsUST = []string{}
			}
			if noKernel {
				cfg.EventsKernel = []string{}
			}

			trace, err := launch.NewTrace(cfg)
			if err != nil {
				return err
			}
			desc := &launch.Description{Actions: []launch.Action{
				trace,
				&launch.Process{Executable: args[0], Args: args[1:]},
			}}
			return executeLaunch(cmd.Context(), desc)
		},
	}

	cmd.Flags().StringVarP(&sessionName, "session-name", "s", "tracelaunch-session", "Tracing session name")
	cmd.Flags().BoolVar(&appendTimestamp, "append-timestamp", true, "Append a timestamp suffix to the session name")
	cmd.Flags().StringVar(&basePath, "base-path", "", "Directory for trace output (default: configured tracing directory)")
	cmd.Flags().StringSliceVar(&eventsUST, "events-ust", nil, "Userspace event patterns to enable")
	cmd.Flags().StringSliceVar(&eventsKernel, "events-kernel", nil, "Kernel event patterns to enable")
	cmd.Flags().StringSliceVar(&contextFields, "context-fields", nil, "Context fields to attach to every channel")
	cmd.Flags().BoolVar(&profileFast, "profile-fast", true, "Use the fast function-profiling preload library")
	cmd.Flags().BoolVar(&noUST, "no-ust", false, "Disable the userspace tracing domain")
	cmd.Flags().BoolVar(&noKernel, "no-kernel", false, "Disable the kernel tracing domain")
	return cmd
}
