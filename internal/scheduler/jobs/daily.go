package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/uswizard/backend/internal/pipeline"
	"github.com/uswizard/backend/pkg/logger"
)

// DailyRunJob executes the full scoring pipeline after the US close.
type DailyRunJob struct {
	orchestrator *pipeline.Orchestrator
	logger       *logger.Logger
}

func NewDailyRunJob(o *pipeline.Orchestrator, log *logger.Logger) *DailyRunJob {
	return &DailyRunJob{orchestrator: o, logger: log}
}

func (j *DailyRunJob) Name() string { return "daily_run" }

// Schedule fires at 21:30 UTC on weekdays, an hour and a half after the
// 20:00 UTC close, leaving providers time to finalize the day's bars.
func (j *DailyRunJob) Schedule() string { return "0 30 21 * * MON-FRI" }

func (j *DailyRunJob) Run(ctx context.Context) error {
	result, err := j.orchestrator.Run(ctx, pipeline.RunConfig{
		Date:       time.Now().UTC(),
		PersistAll: true,
	})
	if err != nil {
		return fmt.Errorf("daily run: %w", err)
	}
	if result.Skipped {
		j.logger.Info("Daily run skipped: not a trading session")
	}
	return nil
}
