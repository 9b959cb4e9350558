package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tracelaunch/tracelaunch/internal/config"
	"github.com/tracelaunch/tracelaunch/internal/lttng"
	"github.com/tracelaunch/tracelaunch/internal/system"
)

func newStartCmd() *cobra.Command {
	var (
		appendTimestamp bool
		basePath        string
		eventsUST       []string
		eventsKernel    []string
		contextFields   []string
		noUST           bool
		noKernel        bool
	)

	cmd := &cobra.Command{
		Use:   "start <session-name>",
		Short: "Create and start a tracing session without launching anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkRequirements(cmd.Context()); err != nil {
				return err
			}
			system.CheckKernelTracing()

			sessionName := args[0]
			if appendTimestamp {
				sessionName = lttng.AppendTimestamp(sessionName)
			}

			cfg := lttng.SessionConfig{
				SessionName:   sessionName,
				BasePath:      basePath,
				EventsUST:     eventsUST,
				EventsKernel:  eventsKernel,
				ContextFields: contextFields,
			}
			// Flags left unset fall back to the configured defaults.
			if !cmd.Flags().Changed("events-ust") {
				cfg.EventsUST = config.DefaultEventsUST
			}
			if !cmd.Flags().Changed("events-kernel") {
				cfg.EventsKernel = config.DefaultEventsKernel
			}
			if !cmd.Flags().Changed("context-fields") {
				cfg.ContextFields = config.DefaultContextFields
			}
			if noUST {
				cfg.EventsUST = nil
			}
			if noKernel {
				cfg.EventsKernel = nil
			}

			traceDir, err := sessionInit(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session: %s\ntrace directory: %s\n", sessionName, traceDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&appendTimestamp, "append-timestamp", true, "Append a timestamp suffix to the session name")
	cmd.Flags().StringVar(&basePath, "base-path", "", "Directory for trace output (default: configured tracing directory)")
	cmd.Flags().StringSliceVar(&eventsUST, "events-ust", nil, "Userspace event patterns to enable")
	cmd.Flags().StringSliceVar(&eventsKernel, "events-kernel", nil, "Kernel event patterns to enable")
	cmd.Flags().StringSliceVar(&contextFields, "context-fields", nil, "Context fields to attach to every channel")
	cmd.Flags().BoolVar(&noUST, "no-ust", false, "Disable the userspace tracing domain")
	cmd.Flags().BoolVar(&noKernel, "no-kernel", false, "Disable the kernel tracing domain")
	return cmd
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <session-name>",
		Short: "Stop and destroy a running tracing session, keeping its data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sessionFini(cmd.Context(), args[0])
		},
	}
}

func newDestroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <session-name>",
		Short: "Destroy a tracing session regardless of its state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sessionDestroy(cmd.Context(), args[0])
		},
	}
}
