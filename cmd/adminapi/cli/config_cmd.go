package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/shoplist/adminapi/internal/config"
)

const defaultConfigFile = "adminapi.yaml"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage adminapi configuration",
		Long:  "Initialize a default configuration file or display the current effective configuration.",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

// ---------- config init ----------

func newConfigInitCmd() *cobra.Command {
	var (
		force bool
		path  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default adminapi.yaml configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(cmd.OutOrStdout(), path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config file")
	cmd.Flags().StringVarP(&path, "output", "o", defaultConfigFile, "Path of the file to write")

	return cmd
}

func runConfigInit(w io.Writer, path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
	}

	if err := config.WriteDefaultConfig(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(w, "Created %s\n", path)
	fmt.Fprintln(w, "Set an admin password with 'adminapi passwd', then run 'adminapi serve'.")
	return nil
}

// ---------- config show ----------

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current effective configuration",
		Long:  "Print the configuration after defaults, the config file and ADMINAPI_* overrides are applied. Secrets are masked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}
}

func runConfigShow(w io.Writer) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Fprintf(w, "# Config file: %s\n", f)
	} else {
		fmt.Fprintln(w, "# Config file: (none found, using defaults)")
	}

	masked := *cfg
	masked.Auth.AdminPassword = mask(masked.Auth.AdminPassword)
	masked.Auth.AdminPasswordHash = mask(masked.Auth.AdminPasswordHash)
	masked.Session.RedisPassword = mask(masked.Session.RedisPassword)
	masked.Database.DSN = mask(masked.Database.DSN)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(&masked)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
