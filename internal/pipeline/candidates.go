package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/internal/screening"
)

// buildCandidates assembles the per-ticker metric maps the screens
// evaluate. Only defined values enter the map: a missing average,
// score, or fundamentals row simply leaves its metric undefined, and
// rules referencing it fail for that ticker.
func (o *Orchestrator) buildCandidates(
	ctx context.Context,
	date time.Time,
	tickers []contracts.Ticker,
	latest map[string]contracts.RollingMetric,
	scores []contracts.RSScore,
) []screening.Candidate {
	scoreBySymbol := make(map[string]float64, len(scores))
	for _, s := range scores {
		scoreBySymbol[s.Symbol] = s.Score
	}

	candidates := make([]screening.Candidate, 0, len(latest))
	for _, t := range tickers {
		if t.Delisted {
			continue
		}
		m, ok := latest[t.Symbol]
		if !ok {
			continue
		}

		metrics := contracts.Metrics{
			contracts.MetricClose:  m.AdjClose,
			contracts.MetricVolume: float64(m.Volume),
			contracts.MetricMarket: string(t.Market),
		}
		if t.Sector != "" {
			metrics[contracts.MetricSector] = t.Sector
		}
		if score, ok := scoreBySymbol[t.Symbol]; ok {
			metrics[contracts.MetricRSScore] = score
		}

		addMA := func(name string, window int) (float64, bool) {
			v, ok := m.MAValue(window)
			if ok {
				metrics[name] = v
			}
			return v, ok
		}
		ma50, ok50 := addMA(contracts.MetricMA50, 50)
		ma150, ok150 := addMA(contracts.MetricMA150, 150)
		ma200, ok200 := addMA(contracts.MetricMA200, 200)

		// Trend-alignment ratios for the stage-2 template.
		if ok50 && ma50 != 0 {
			metrics[contracts.MetricCloseOverMA50] = m.AdjClose / ma50
		}
		if ok50 && ok150 && ma150 != 0 {
			metrics[contracts.MetricMA50OverMA150] = ma50 / ma150
		}
		if ok150 && ok200 && ma200 != 0 {
			metrics[contracts.MetricMA150OverMA200] = ma150 / ma200
		}

		o.addFundamentals(ctx, date, t.Symbol, metrics)

		candidates = append(candidates, screening.Candidate{
			Symbol:  t.Symbol,
			Metrics: metrics,
		})
	}
	return candidates
}

// addFundamentals merges the point-in-time fundamentals row, when one
// exists, into the metric map.
func (o *Orchestrator) addFundamentals(ctx context.Context, date time.Time, symbol string, metrics contracts.Metrics) {
	if o.fundamentalsRepo == nil {
		return
	}
	rec, err := o.fundamentalsRepo.GetLatest(ctx, symbol, date)
	if err != nil {
		if !errors.Is(err, contracts.ErrNotFound) {
			o.logger.WithError(err).WithField("symbol", symbol).Warn("Fundamentals lookup failed")
		}
		return
	}
	metrics[contracts.MetricEPS] = rec.EPS
	if rec.Revenue != 0 {
		metrics[contracts.MetricNetMargin] = rec.NetIncome / rec.Revenue
	}
}
