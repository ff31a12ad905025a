// Package cmd implements the command-line interface for mailmerge.
//
// This package provides the following commands:
//   - send: Send templated emails to all or selected recipient lists
//   - auth: Run the Google authorization flow and store the credential
//   - lists: Show the configured recipient lists
//   - version: Display version information
//
// The send command is the default command when no subcommand is specified.
package cmd
