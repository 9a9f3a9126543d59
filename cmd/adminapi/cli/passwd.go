package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/shoplist/adminapi/internal/service"
)

const minPasswordLength = 8

func newPasswdCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Hash an admin password for the configuration file",
		Long: `Prompt for the admin password and print its bcrypt hash. Put the hash into
auth.admin_password_hash in adminapi.yaml or export it as
ADMINAPI_AUTH_ADMIN_PASSWORD_HASH; the plaintext never needs to be stored.`,
		Example: `  adminapi passwd
  adminapi passwd --password 'correct horse battery'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				password, err = promptPassword()
				if err != nil {
					return err
				}
			}
			return runPasswd(cmd.OutOrStdout(), password)
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")

	return cmd
}

func promptPassword() (string, error) {
	fmt.Print("Password: ")
	pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	fmt.Println()

	fmt.Print("Confirm password: ")
	confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	fmt.Println()

	if string(pwBytes) != string(confirmBytes) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(pwBytes), nil
}

func runPasswd(w io.Writer, password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	hash, err := service.HashPassword(password)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Add to adminapi.yaml:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  auth:")
	fmt.Fprintf(w, "    admin_password_hash: %q\n", hash)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "or export:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  ADMINAPI_AUTH_ADMIN_PASSWORD_HASH='%s'\n", hash)
	return nil
}
