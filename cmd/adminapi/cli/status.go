package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check if the adminapi server is running",
		Long:  "Check the status of the adminapi server, including process state, HTTP health and database readiness.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.OutOrStdout())
		},
	}
}

func runStatus(w io.Writer) error {
	pid, err := readPID()
	if err != nil {
		fmt.Fprintln(w, "Server is not running (no PID file found).")
		return nil
	}

	if !isProcessRunning(pid) {
		removePID()
		fmt.Fprintln(w, "Server is not running (stale PID file removed).")
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	base := fmt.Sprintf("http://%s:%d", host, cfg.Server.Port)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ready, code, err := probeReadyz(ctx, base+"/readyz")
	if err != nil {
		fmt.Fprintf(w, "Server process is running (PID %d) but not responding to HTTP.\n", pid)
		fmt.Fprintf(w, "  Logs: %s\n", logFilePath())
		return nil
	}

	fmt.Fprintf(w, "Server is running (PID %d)\n", pid)
	fmt.Fprintf(w, "  Ready:   %s (%d)\n", ready, code)
	fmt.Fprintf(w, "  URL:     %s\n", base)
	fmt.Fprintf(w, "  Logs:    %s\n", logFilePath())
	return nil
}

// probeReadyz returns the reported readiness status and the HTTP code.
func probeReadyz(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Status == "" {
		body.Status = "unknown"
	}
	return body.Status, resp.StatusCode, nil
}
