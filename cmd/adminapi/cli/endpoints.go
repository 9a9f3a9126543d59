package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shoplist/adminapi/internal/catalog"
)

func newEndpointsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "List the endpoint catalogue",
		Long: `List every API endpoint with the identifier API keys reference in their
permissions. Routes outside the catalogue are checked against "` + catalog.Unknown + `".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEndpoints(cmd.OutOrStdout(), jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runEndpoints(w io.Writer, jsonOutput bool) error {
	groups := catalog.Grouped()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s\n", g.Category)
		for _, e := range g.Endpoints {
			fmt.Fprintf(w, "  %-28s %-7s %s\n", e.ID, e.Method, e.Path)
		}
	}
	return nil
}
