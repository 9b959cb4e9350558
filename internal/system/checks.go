package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/tracelaunch/tracelaunch/internal/config"
	"github.com/tracelaunch/tracelaunch/internal/logger"
	"github.com/tracelaunch/tracelaunch/internal/lttng"
)

// CheckRequirements validates that the external tracer control CLI is usable
// before any session is created. It returns an actionable error if not.
func CheckRequirements(ctx context.Context) error {
	if _, err := exec.LookPath(config.LTTngBin); err != nil {
		return fmt.Errorf(
			"tracer control binary %q not found in PATH.\n\n"+
				"Install LTTng tools first:\n"+
				"  Debian/Ubuntu: sudo apt-get install lttng-tools liblttng-ust-dev\n"+
				"  Fedora/RHEL:   sudo dnf install lttng-tools lttng-ust\n"+
				"Or point TRACELAUNCH_LTTNG_BIN at the binary",
			config.LTTngBin)
	}

	// `lttng list` needs a reachable session daemon; it is the cheapest
	// liveness probe that exercises the same path session setup will.
	if _, err := lttng.ListSessions(ctx); err != nil {
		return fmt.Errorf(
			"tracer session daemon is not reachable: %w\n\n"+
				"Start it with 'lttng-sessiond --daemonize' (as root for kernel "+
				"tracing, or as a user in the 'tracing' group for userspace-only "+
				"tracing)", err)
	}

	logger.Debug("Tracer control preflight passed", zap.String("bin", config.LTTngBin))
	return nil
}

// CheckKernelTracing warns (without failing) when kernel-domain tracing is
// likely unavailable for the current user. Userspace tracing still works.
func CheckKernelTracing() {
	if os.Geteuid() == 0 {
		return
	}
	if inTracingGroup() {
		return
	}
	logger.Warn(
		"Not root and not in the 'tracing' group; kernel events will likely fail to enable.\n" +
			"  Add yourself with 'sudo usermod -aG tracing $USER' and re-login, or run as root.\n" +
			"  Userspace (UST) tracing is unaffected.")
}

// inTracingGroup reports whether the current process holds the 'tracing'
// supplementary group.
func inTracingGroup() bool {
	grp, err := user.LookupGroup("tracing")
	if err != nil {
		return false
	}
	wantGid, err := strconv.Atoi(grp.Gid)
	if err != nil {
		return false
	}
	gids, err := unix.Getgroups()
	if err != nil {
		return false
	}
	for _, gid := range gids {
		if gid == wantGid {
			return true
		}
	}
	return os.Getegid() == wantGid
}
