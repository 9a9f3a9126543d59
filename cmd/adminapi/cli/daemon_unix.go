//go:build !windows

package cli

import (
	"errors"
	"os/exec"
	"syscall"
)

// setSysProcAttr detaches the daemon into its own session so closing the
// launching terminal does not deliver SIGHUP to it.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// isProcessRunning probes pid with signal 0. EPERM still means the process
// exists, it is just owned by another user.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// stopProcess asks the server to drain and exit.
func stopProcess(pid int) error {
	return syscall.Kill(pid, syscall.SIGTERM)
}
