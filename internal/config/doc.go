// Package config loads server settings from bubbletasks.yaml and
// BUBBLETASKS_* environment variables and validates them.
package config
