package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shoplist/adminapi/internal/config"
)

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the background adminapi server",
		Long:  "Stop an adminapi server started with 'adminapi serve'. The server drains in-flight requests before exiting.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStop(cmd.OutOrStdout())
		},
	}
}

func runStop(w io.Writer) error {
	pid, err := readPID()
	if err != nil {
		return fmt.Errorf("no running server found (missing PID file at %s)", pidFilePath())
	}

	if !isProcessRunning(pid) {
		removePID()
		return fmt.Errorf("server (PID %d) is not running (stale PID file removed)", pid)
	}

	// Wait a little longer than the server's own drain deadline.
	wait := 30 * time.Second
	if cfg, err := loadConfig(); err == nil {
		wait = config.Duration(cfg.Server.ShutdownTimeout, wait)
	}
	wait += 5 * time.Second

	fmt.Fprintf(w, "Stopping adminapi server (PID %d)...\n", pid)

	if err := stopProcess(pid); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
		if !isProcessRunning(pid) {
			removePID()
			fmt.Fprintln(w, "Server stopped.")
			return nil
		}
	}

	return fmt.Errorf("server (PID %d) did not stop within %s; it may still be draining connections", pid, wait)
}
