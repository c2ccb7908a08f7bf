package jobs

import (
	"context"
	"fmt"

	"github.com/uswizard/backend/internal/pipeline"
	"github.com/uswizard/backend/pkg/logger"
)

// CalendarRefreshJob extends the trading calendar from the benchmark
// series so date math never walks past the last known session.
type CalendarRefreshJob struct {
	orchestrator *pipeline.Orchestrator
	logger       *logger.Logger
}

func NewCalendarRefreshJob(o *pipeline.Orchestrator, log *logger.Logger) *CalendarRefreshJob {
	return &CalendarRefreshJob{orchestrator: o, logger: log}
}

func (j *CalendarRefreshJob) Name() string { return "calendar_refresh" }

// Schedule fires early Saturday, after the trading week is complete.
func (j *CalendarRefreshJob) Schedule() string { return "0 0 8 * * SAT" }

func (j *CalendarRefreshJob) Run(ctx context.Context) error {
	sessions, err := j.orchestrator.RefreshCalendar(ctx)
	if err != nil {
		return fmt.Errorf("calendar refresh: %w", err)
	}
	j.logger.WithField("sessions", sessions).Info("Calendar refresh done")
	return nil
}
