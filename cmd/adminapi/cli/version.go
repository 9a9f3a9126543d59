package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/shoplist/adminapi/internal/catalog"
)

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Endpoints int    `json:"endpoints"`
}

func newVersionCmd(version, commit, date string) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printVersion(cmd.OutOrStdout(), versionInfo{
				Version:   version,
				Commit:    commit,
				Built:     date,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
				Endpoints: len(catalog.All()),
			}, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	return cmd
}

func printVersion(w io.Writer, info versionInfo, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Fprintf(w, "adminapi %s\n", info.Version)
	fmt.Fprintf(w, "  commit:    %s\n", info.Commit)
	fmt.Fprintf(w, "  built:     %s\n", info.Built)
	fmt.Fprintf(w, "  go:        %s\n", info.GoVersion)
	fmt.Fprintf(w, "  os/arch:   %s\n", info.Platform)
	fmt.Fprintf(w, "  endpoints: %d\n", info.Endpoints)
	return nil
}
