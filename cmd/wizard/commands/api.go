package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/uswizard/backend/internal/api"
	"github.com/uswizard/backend/internal/api/handlers"
	"github.com/uswizard/backend/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server for stored batch results.

Endpoints:
  GET  /health                        - Health check
  GET  /api/report?rule_set=<id>      - Screen report (latest or &date=)
  GET  /api/breadth?limit=<n>         - Recent NAA200R values
  GET  /api/rs                        - RS scores (latest or ?date=)

Example:
  go run ./cmd/wizard api
  go run ./cmd/wizard api --port 8090`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT env)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if apiPort != "" {
		app.cfg.Port = apiPort
	}

	cache := redis.NewCache(app.redis, "uswizard")
	reportHandler := handlers.NewReportHandler(
		app.cal,
		app.reportRepo,
		app.breadthRepo,
		app.rsRepo,
		cache,
		app.log,
	)

	router := api.NewRouter(reportHandler, app.log)
	server := api.New(app.cfg, app.log, router)

	go func() {
		if err := server.Start(); err != nil {
			app.log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", app.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	app.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	app.log.Info("Server stopped")
	return nil
}
