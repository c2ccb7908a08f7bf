package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/uswizard/backend/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the daily batch",
	Long: `Executes the full daily batch for one trading date.

This command:
- Refreshes the ticker universe from the exchange screener
- Syncs daily bars for every active ticker
- Computes rolling statistics and RS scores
- Computes NAA200R breadth
- Evaluates every configured screen and persists the reports

Example:
  go run ./cmd/wizard run
  go run ./cmd/wizard run --date 2024-07-05
  go run ./cmd/wizard run --skip-sync --skip-universe`,
	RunE: runDaily,
}

var (
	runDate         string
	runSkipSync     bool
	runSkipUniverse bool
	runPersistAll   bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDate, "date", "", "trading date YYYY-MM-DD (default: today)")
	runCmd.Flags().BoolVar(&runSkipSync, "skip-sync", false, "score from stored bars without syncing")
	runCmd.Flags().BoolVar(&runSkipUniverse, "skip-universe", false, "keep the stored ticker list")
	runCmd.Flags().BoolVar(&runPersistAll, "persist-all", false, "also persist the full per-ticker metric history")
}

func runDaily(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	date := time.Now().UTC()
	if runDate != "" {
		parsed, err := time.Parse("2006-01-02", runDate)
		if err != nil {
			return fmt.Errorf("parse --date: %w", err)
		}
		date = parsed
	}

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.orchestrator.Run(ctx, pipeline.RunConfig{
		Date:         date,
		SkipSync:     runSkipSync,
		SkipUniverse: runSkipUniverse,
		PersistAll:   runPersistAll,
	})
	if err != nil {
		return fmt.Errorf("daily run: %w", err)
	}

	printRunResult(result)
	return nil
}

func printRunResult(r *pipeline.RunResult) {
	fmt.Printf("\n=== Daily Run %s ===\n", r.Date.Format("2006-01-02"))
	if r.Skipped {
		fmt.Println("Skipped: not a trading session")
		return
	}
	fmt.Printf("Strategy: %s\n", r.StrategyHash[:12])
	fmt.Printf("Synced:   %d tickers\n", r.Synced)
	fmt.Printf("Scored:   %d tickers\n", r.Scored)
	if r.Breadth != nil {
		fmt.Printf("NAA200R:  %.2f%% (%d/%d above MA200)\n", r.Breadth.Value, r.Breadth.Above, r.Breadth.Defined)
	}
	fmt.Printf("Reports:  %v\n", r.Reports)
	if len(r.Excluded) > 0 {
		symbols := make([]string, 0, len(r.Excluded))
		for sym := range r.Excluded {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		fmt.Printf("Excluded: %d (%v)\n", len(symbols), symbols)
	}
	fmt.Printf("Duration: %s\n", r.Duration.Round(time.Millisecond))
}
