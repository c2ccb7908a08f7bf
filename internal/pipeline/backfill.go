package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uswizard/backend/internal/contracts"
)

// BackfillRS computes and stores RS scores for every trading session that
// has none yet, oldest first, from the stored bar history. No provider
// calls are made; sync must have run before.
func (o *Orchestrator) BackfillRS(ctx context.Context) (int, error) {
	sessions, err := o.calendarRepo.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load trading sessions: %w", err)
	}
	scored, err := o.rsRepo.GetDatesWithScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("load scored dates: %w", err)
	}
	have := make(map[time.Time]bool, len(scored))
	for _, d := range scored {
		have[contracts.Day(d)] = true
	}

	tickers, err := o.tickerRepo.GetActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active tickers: %w", err)
	}
	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		symbols = append(symbols, t.Symbol)
	}

	// One metrics pass over the full history covers every missing date.
	load := func(ctx context.Context, symbol string) ([]contracts.DailyBar, error) {
		return o.priceRepo.GetSeries(ctx, symbol)
	}
	results, excluded := o.pool.Run(ctx, symbols, load)
	if len(excluded) > 0 {
		o.logger.WithField("excluded", len(excluded)).Warn("Backfill skipping tickers")
	}

	byDate := make(map[time.Time][]contracts.RollingMetric)
	for _, r := range results {
		for _, m := range r.Metrics {
			byDate[m.Date] = append(byDate[m.Date], m)
		}
	}

	filled := 0
	for _, session := range sessions {
		if err := ctx.Err(); err != nil {
			return filled, err
		}
		day := contracts.Day(session)
		if have[day] {
			continue
		}
		snapshot, ok := byDate[day]
		if !ok {
			continue // session predates the stored history
		}

		scores, _, err := o.scorer.Score(day, snapshot)
		if err != nil {
			if errors.Is(err, contracts.ErrInsufficientUniverse) {
				o.logger.WithField("date", day.Format("2006-01-02")).
					Debug("Backfill: universe too thin, date left unscored")
				continue
			}
			return filled, fmt.Errorf("backfill %s: %w", day.Format("2006-01-02"), err)
		}
		if err := o.rsRepo.SaveBatch(ctx, scores); err != nil {
			return filled, fmt.Errorf("save backfill scores %s: %w", day.Format("2006-01-02"), err)
		}
		filled++
	}

	o.logger.WithFields(map[string]interface{}{
		"sessions": len(sessions),
		"filled":   filled,
	}).Info("RS backfill completed")
	return filled, nil
}
