package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/tracelaunch/tracelaunch/internal/config"
	"github.com/tracelaunch/tracelaunch/internal/system"
)

type envReport struct {
	Time             string   `json:"time"`
	GoVersion        string   `json:"goVersion"`
	GOOS             string   `json:"goos"`
	GOARCH           string   `json:"goarch"`
	KernelRelease    string   `json:"kernelRelease"`
	LTTngBin         string   `json:"lttngBin"`
	LTTngPath        string   `json:"lttngPath"`
	BabeltraceBin    string   `json:"babeltraceBin"`
	BabeltracePath   string   `json:"babeltracePath"`
	SessionDaemonOK  bool     `json:"sessionDaemonReachable"`
	Root             bool     `json:"root"`
	TracingDirectory string   `json:"tracingDirectory"`
	Warnings         []string `json:"warnings"`
}

func newCheckCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the tracer toolchain is installed and reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				rep := collectEnvReport(cmd)
				out, _ := json.MarshalIndent(rep, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}
			if err := checkRequirements(cmd.Context()); err != nil {
				return err
			}
			system.CheckKernelTracing()
			fmt.Fprintln(cmd.OutOrStdout(), "tracer toolchain ok")
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print a full environment report as JSON")
	return cmd
}

func collectEnvReport(cmd *cobra.Command) envReport {
	rep := envReport{
		Time:             time.Now().Format(time.RFC3339),
		GoVersion:        runtime.Version(),
		GOOS:             runtime.GOOS,
		GOARCH:           runtime.GOARCH,
		LTTngBin:         config.LTTngBin,
		BabeltraceBin:    config.BabeltraceBin,
		Root:             os.Geteuid() == 0,
		TracingDirectory: config.TracingDirectory(),
	}

	var u unix.Utsname
	if err := unix.Uname(&u); err == nil {
		rep.KernelRelease = bytesToString(u.Release[:])
	}

	if path, err := exec.LookPath(config.LTTngBin); err == nil {
		rep.LTTngPath = path
	} else {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("tracer control binary %q not found in PATH", config.LTTngBin))
	}

	if path, err := exec.LookPath(config.BabeltraceBin); err == nil {
		rep.BabeltracePath = path
	} else {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("trace converter %q not found in PATH; reading traces back will fail", config.BabeltraceBin))
	}

	if rep.LTTngPath != "" {
		if err := checkRequirements(cmd.Context()); err == nil {
			rep.SessionDaemonOK = true
		} else {
			rep.Warnings = append(rep.Warnings, fmt.Sprintf("session daemon probe failed: %v", err))
		}
	}

	if !rep.Root {
		rep.Warnings = append(rep.Warnings, "not running as root; kernel-domain events may fail to enable")
	}

	return rep
}

func bytesToString(bts []byte) string {
	var b bytes.Buffer
	for _, c := range bts {
		if c == 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}
