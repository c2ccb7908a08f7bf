package commands

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "wizard",
	Short: "US equity daily scoring engine",
	Long: `wizard runs the US equity batch: price sync, rolling statistics,
relative strength ranking, NAA200R breadth, and rule-driven screens.

Usage:
  go run ./cmd/wizard [command]

Examples:
  go run ./cmd/wizard run
  go run ./cmd/wizard run --date 2024-07-05 --skip-sync
  go run ./cmd/wizard backfill
  go run ./cmd/wizard api
  go run ./cmd/wizard scheduler`,
}

// Execute runs the CLI. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
