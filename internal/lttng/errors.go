package lttng

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandError carries the failed control command and its captured stderr so
// callers can surface an actionable message.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("lttng %s: %v: %s", strings.Join(e.Args, " "), e.Err, e.Stderr)
	}
	return fmt.Sprintf("lttng %s: %v", strings.Join(e.Args, " "), e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// IsNotInstalled reports whether err means the lttng binary is missing from
// PATH, as opposed to a session-level failure.
func IsNotInstalled(err error) bool {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	var execErr *exec.Error
	return errors.As(cmdErr.Err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound)
}
