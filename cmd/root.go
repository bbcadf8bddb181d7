package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the invoiceflow application
var rootCmd = &cobra.Command{
	Use:   "invoiceflow",
	Short: "Extracts invoice data from Gmail attachments into Drive and Sheets",
	Long: `invoiceflow polls a Gmail inbox for unread emails matching a subject
filter, extracts structured invoice fields from their attachments using a
vision model, uploads each attachment to Google Drive under a derived name
and appends a row to a Google Sheets processing log.

It can run as:
  - A one-shot CLI tool (default)
  - A scheduled watcher with a Prometheus metrics endpoint`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "invoiceflow version %s\n" .Version}}`)

	// If no subcommand is provided, run the process command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "process")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("invoiceflow version %s\n", version)
		},
	}
}

func init() {
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
