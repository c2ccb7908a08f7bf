package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/uswizard/backend/internal/scheduler"
	"github.com/uswizard/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run or inspect the job scheduler",
	Long: `Starts the scheduler daemon or manages its jobs.

Registered jobs:
  daily_run        - full batch, weekdays 21:30 UTC (after the US close)
  calendar_refresh - trading calendar rebuild, Saturdays 08:00 UTC

Example:
  go run ./cmd/wizard scheduler start
  go run ./cmd/wizard scheduler list
  go run ./cmd/wizard scheduler run daily_run`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJobNow,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func initScheduler(app *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(app.log)

	if err := sched.AddJob(jobs.NewDailyRunJob(app.orchestrator, app.log)); err != nil {
		return nil, fmt.Errorf("register daily run: %w", err)
	}
	if err := sched.AddJob(jobs.NewCalendarRefreshJob(app.orchestrator, app.log)); err != nil {
		return nil, fmt.Errorf("register calendar refresh: %w", err)
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := initScheduler(app)
	if err != nil {
		return err
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler started")
	fmt.Println("\nRegistered jobs:")
	for _, name := range sched.Jobs() {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := initScheduler(app)
	if err != nil {
		return err
	}

	fmt.Println("Registered jobs:")
	for _, name := range sched.Jobs() {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func runJobNow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	sched, err := initScheduler(app)
	if err != nil {
		return err
	}

	name := args[0]
	if err := sched.RunJob(name); err != nil {
		return err
	}

	// RunJob is asynchronous; wait for the attempt to be recorded.
	fmt.Printf("Triggered job %s\n", name)
	waitForResult(sched, name)
	return nil
}

func waitForResult(sched *scheduler.Scheduler, name string) {
	h, err := sched.History(name)
	if err != nil {
		return
	}
	for {
		time.Sleep(200 * time.Millisecond)
		if result, ok := h.Latest(); ok {
			if result.Success {
				fmt.Printf("✅ %s completed in %s\n", name, result.Duration)
			} else {
				fmt.Printf("❌ %s failed: %s\n", name, result.Error)
			}
			return
		}
	}
}
