package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/shoplist/adminapi/internal/catalog"
	"github.com/shoplist/adminapi/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI document",
		Long: `Generate the OpenAPI 3 document for the endpoint catalogue, including the
API key and admin session security schemes.`,
		Example: `  adminapi openapi                 # print to stdout
  adminapi openapi -o openapi.json  # write to file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("create %s: %w", outputFile, err)
				}
				defer f.Close()
				w = f
			}
			return runOpenAPI(w, baseURL)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the document to file instead of stdout")
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Server URL to publish in the document")

	return cmd
}

func runOpenAPI(w io.Writer, baseURL string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	version := versionString()
	if version == "dev" {
		version = ""
	}
	doc := openapi.Generate(catalog.All(), openapi.Options{
		BaseURL:      baseURL,
		Version:      version,
		APIKeyHeader: cfg.Auth.APIKeyHeader,
		CookieName:   cfg.Auth.CookieName,
	})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
