package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/invoiceflow/internal/config"
	"github.com/teemow/invoiceflow/internal/google"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to the Google account",
		Long: `Run the OAuth authorization flow for the Gmail, Drive and Sheets scopes
and cache the resulting token for later runs.

Requires GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET to be set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
				return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
			}

			if google.HasToken() {
				fmt.Println("A cached token already exists; re-authorizing will replace it.")
			}

			fmt.Printf("Open the following URL in a browser:\n\n%s\n\n", google.GetAuthURL())
			fmt.Print("Enter the authorization code: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			if err := google.SaveToken(cmd.Context(), code); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			fmt.Println("Token saved.")
			return nil
		},
	}
}
