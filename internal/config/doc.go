// Package config loads mailmerge settings and recipient lists.
//
// Settings (sender, file locations, redirect URL, logging) are read with viper
// from an optional mailmerge.yaml, MAILMERGE_* environment variables and bound
// command-line flags. Recipient lists are read from a JSON or YAML file mapping
// list name to subject, template and recipients, keeping the order in which the
// lists appear in the file.
package config
