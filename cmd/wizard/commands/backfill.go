package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// backfillCmd represents the backfill command
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Recompute RS scores for missing sessions",
	Long: `Recomputes RS scores for every known trading session that has no
stored scores, using the bars already in the database.

Useful after loading price history for the first time, or after a
strategy change that invalidates old scores.

Example:
  go run ./cmd/wizard backfill`,
	RunE: runBackfill,
}

func init() {
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	filled, err := app.orchestrator.BackfillRS(ctx)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	fmt.Printf("\n✅ Backfill complete: %d sessions scored\n", filled)
	return nil
}
