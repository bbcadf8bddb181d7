// Package cmd implements the command-line interface for invoiceflow.
//
// This package provides the following commands:
//   - process: Run one processing cycle over unread invoice emails
//   - watch: Run processing cycles on a schedule with a metrics endpoint
//   - auth: Authorize access to the Google account and cache the token
//   - version: Display version information
//
// The process command is the default command when no subcommand is specified.
package cmd
