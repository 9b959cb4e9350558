package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracelaunch/tracelaunch/internal/logger"
	"github.com/tracelaunch/tracelaunch/internal/report"
	"github.com/tracelaunch/tracelaunch/internal/tracing"
)

func newReadCmd() *cobra.Command {
	var (
		enabledEvents  []string
		expectedEvents []string
	)

	cmd := &cobra.Command{
		Use:   "read <trace-directory>",
		Short: "Read a recorded trace back and print a summary report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			traceDir := args[0]

			tracingManager, err := tracing.NewManager()
			if err != nil {
				logger.Warn("Failed to create tracing manager", zap.Error(err))
				tracingManager = nil
			}

			ctx := cmd.Context()
			endRead := func(int, error) {}
			if tracingManager != nil {
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = tracingManager.Shutdown(shutdownCtx)
				}()
				ctx, endRead = tracingManager.StartTraceRead(ctx, traceDir)
			}

			events, err := readTraceDir(ctx, traceDir)
			endRead(len(events), err)
			if err != nil {
				return err
			}

			sessionName := filepath.Base(filepath.Clean(traceDir))
			enabled := append(append([]string{}, enabledEvents...), expectedEvents...)
			fmt.Fprint(cmd.OutOrStdout(), report.Generate(sessionName, enabled, events))

			if missing := report.MissingEvents(expectedEvents, events); len(missing) > 0 {
				return fmt.Errorf("expected events not in trace: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&enabledEvents, "events", nil, "Event patterns the session had enabled, for coverage reporting")
	cmd.Flags().StringSliceVar(&expectedEvents, "expect", nil, "Event names that must appear in the trace; missing ones fail the command")
	return cmd
}
