//go:build windows

package cli

import (
	"os"
	"os/exec"
)

// setSysProcAttr is a no-op on Windows. Run the server under a service
// wrapper instead of --daemon for production deployments.
func setSysProcAttr(cmd *exec.Cmd) {}

// isProcessRunning reports whether a process with the given PID exists.
// FindProcess opens a process handle on Windows and fails for unknown PIDs.
func isProcessRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	proc.Release()
	return true
}

// stopProcess kills the process; Windows has no SIGTERM, so in-flight
// requests are not drained.
func stopProcess(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
