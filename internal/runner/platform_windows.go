//go:build windows

package runner

import "os/exec"

// setupProcessGroup is a no-op on Windows; this repo does not use Job
// Objects for child-tree management (see DESIGN.md Open Question (c)),
// so only the immediate process is tracked and signaled.
func setupProcessGroup(cmd *exec.Cmd) {}

// terminateProcessGroup has no graceful-termination signal available
// without Job Objects, so it always reports failure to force the
// caller's kill escalation.
func terminateProcessGroup(cmd *exec.Cmd) error {
	return errNoGracefulTerminate
}

// killProcessGroup kills the immediate process only.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}

var errNoGracefulTerminate = &windowsTerminateError{}

type windowsTerminateError struct{}

func (*windowsTerminateError) Error() string {
	return "graceful termination not supported on windows without job objects"
}
