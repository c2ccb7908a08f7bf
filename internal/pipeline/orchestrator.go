package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/uswizard/backend/internal/breadth"
	"github.com/uswizard/backend/internal/calendar"
	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/internal/marketdata"
	"github.com/uswizard/backend/internal/rolling"
	"github.com/uswizard/backend/internal/scoring"
	"github.com/uswizard/backend/internal/screening"
	"github.com/uswizard/backend/internal/strategy"
	"github.com/uswizard/backend/pkg/logger"
)

// Orchestrator wires the daily batch: calendar gate, universe refresh,
// bar sync, rolling stats, RS ranking, breadth, screens, reports. Every
// stage logs its outcome; a per-ticker failure is an exclusion, a
// per-stage failure aborts the run.
type Orchestrator struct {
	strategyCfg *strategy.Config

	calendar     contracts.TradingCalendar
	universe     contracts.UniverseProvider
	fundamentals contracts.FundamentalsProvider
	syncer       *marketdata.Syncer
	pool         *rolling.Pool
	scorer       *scoring.Scorer
	breadth      *breadth.Aggregator
	screener     *screening.Engine

	calendarRepo     contracts.CalendarRepository
	tickerRepo       contracts.TickerRepository
	priceRepo        contracts.PriceRepository
	fundamentalsRepo contracts.FundamentalsRepository
	metricRepo       contracts.MetricRepository
	rsRepo           contracts.RSRepository
	breadthRepo      contracts.BreadthRepository
	reportRepo       contracts.ReportRepository

	logger *logger.Logger
}

// Deps bundles the orchestrator's collaborators; the cobra commands
// assemble it once at startup.
type Deps struct {
	StrategyCfg *strategy.Config

	Calendar contracts.TradingCalendar
	Universe contracts.UniverseProvider
	// Fundamentals is optional; when unset, matched tickers keep their
	// stored fundamentals snapshot.
	Fundamentals contracts.FundamentalsProvider
	Syncer       *marketdata.Syncer
	Pool         *rolling.Pool
	Scorer       *scoring.Scorer
	Breadth      *breadth.Aggregator
	Screener     *screening.Engine

	CalendarRepo     contracts.CalendarRepository
	TickerRepo       contracts.TickerRepository
	PriceRepo        contracts.PriceRepository
	FundamentalsRepo contracts.FundamentalsRepository
	MetricRepo       contracts.MetricRepository
	RSRepo           contracts.RSRepository
	BreadthRepo      contracts.BreadthRepository
	ReportRepo       contracts.ReportRepository

	Logger *logger.Logger
}

func NewOrchestrator(d Deps) *Orchestrator {
	return &Orchestrator{
		strategyCfg:      d.StrategyCfg,
		calendar:         d.Calendar,
		universe:         d.Universe,
		fundamentals:     d.Fundamentals,
		syncer:           d.Syncer,
		pool:             d.Pool,
		scorer:           d.Scorer,
		breadth:          d.Breadth,
		screener:         d.Screener,
		calendarRepo:     d.CalendarRepo,
		tickerRepo:       d.TickerRepo,
		priceRepo:        d.PriceRepo,
		fundamentalsRepo: d.FundamentalsRepo,
		metricRepo:       d.MetricRepo,
		rsRepo:           d.RSRepo,
		breadthRepo:      d.BreadthRepo,
		reportRepo:       d.ReportRepo,
		logger:           d.Logger,
	}
}

// RunConfig parameterizes one daily run.
type RunConfig struct {
	Date         time.Time
	SkipSync     bool // score from stored bars only
	SkipUniverse bool // keep the stored ticker list
	PersistAll   bool // also persist the full per-ticker metric history
}

// RunResult summarizes a completed (or skipped) run.
type RunResult struct {
	Date         time.Time
	StrategyHash string
	Skipped      bool
	Synced       int
	Scored       int
	Excluded     map[string]string
	Breadth      *contracts.BreadthValue
	Reports      []string
	Duration     time.Duration
}

// Run executes the full daily batch for one date.
func (o *Orchestrator) Run(ctx context.Context, cfg RunConfig) (*RunResult, error) {
	start := time.Now()
	date := contracts.Day(cfg.Date)

	hash, err := strategy.Hash(o.strategyCfg)
	if err != nil {
		return nil, fmt.Errorf("hash strategy config: %w", err)
	}

	result := &RunResult{Date: date, StrategyHash: hash, Excluded: make(map[string]string)}

	o.logger.WithFields(map[string]interface{}{
		"date":          date.Format("2006-01-02"),
		"strategy_hash": hash[:12],
	}).Info("Starting daily run")

	// Extend the calendar through the run date before gating. The startup
	// index only knows sessions stored by past runs, so gating on it would
	// skip every current-date run.
	if !cfg.SkipSync {
		if _, err := RefreshSessions(ctx, o.syncer, o.priceRepo, o.calendarRepo, o.logger); err != nil {
			o.logger.WithError(err).Warn("Calendar refresh failed, gating on stored sessions")
		}
	}
	gate := o.sessionGate(ctx)

	if !gate.IsTradingDay(date) {
		o.logger.WithField("date", date.Format("2006-01-02")).Info("Not a trading session, skipping run")
		result.Skipped = true
		result.Duration = time.Since(start)
		return result, nil
	}

	if !cfg.SkipUniverse {
		o.refreshUniverse(ctx)
	}

	tickers, err := o.tickerRepo.GetActive(ctx)
	if err != nil {
		return result, fmt.Errorf("load active tickers: %w", err)
	}
	if !cfg.SkipSync {
		// The benchmark itself was already synced by the calendar refresh.
		o.syncer.PrimeSplits(ctx, date.AddDate(0, 0, -7))
	}

	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		symbols = append(symbols, t.Symbol)
	}

	var synced atomic.Int64
	results, excluded := o.pool.Run(ctx, symbols, o.loadSeries(date, cfg.SkipSync, &synced))
	result.Synced = int(synced.Load())
	for sym, reason := range excluded {
		result.Excluded[sym] = reason
	}

	latest := make(map[string]contracts.RollingMetric, len(results))
	snapshot := make([]contracts.RollingMetric, 0, len(results))
	for _, r := range results {
		if r.Err != nil || len(r.Metrics) == 0 {
			continue
		}
		last := r.Metrics[len(r.Metrics)-1]
		if !last.Date.Equal(date) {
			result.Excluded[r.Symbol] = fmt.Sprintf("stale: last bar %s", last.Date.Format("2006-01-02"))
			continue
		}
		latest[r.Symbol] = last
		snapshot = append(snapshot, last)
		if cfg.PersistAll {
			if err := o.metricRepo.ReplaceForSymbol(ctx, r.Symbol, r.Metrics); err != nil {
				o.logger.WithError(err).WithField("symbol", r.Symbol).Warn("Metric persist failed")
			}
		}
	}

	scores, scoreExcluded, err := o.scorer.Score(date, snapshot)
	if err != nil {
		return result, fmt.Errorf("rank %s: %w", date.Format("2006-01-02"), err)
	}
	for _, sym := range scoreExcluded {
		result.Excluded[sym] = "undefined momentum horizon"
	}
	if err := o.rsRepo.SaveBatch(ctx, scores); err != nil {
		return result, fmt.Errorf("save rs scores: %w", err)
	}
	result.Scored = len(scores)

	if bv, err := o.breadth.Compute(date, tickers, latest); err != nil {
		if !errors.Is(err, contracts.ErrInsufficientHistory) {
			return result, fmt.Errorf("compute breadth: %w", err)
		}
		o.logger.WithError(err).Warn("Breadth undefined for date")
	} else {
		if err := o.breadthRepo.Save(ctx, &bv); err != nil {
			return result, fmt.Errorf("save breadth: %w", err)
		}
		result.Breadth = &bv
	}

	candidates := o.buildCandidates(ctx, date, tickers, latest, scores)
	matched := make(map[string]struct{})
	for _, set := range o.strategyCfg.Screens {
		screenResult, err := o.screener.Run(date, set, candidates, result.Excluded)
		if err != nil {
			return result, fmt.Errorf("screen %s: %w", set.ID, err)
		}
		if err := o.reportRepo.Save(ctx, screenResult); err != nil {
			return result, fmt.Errorf("save report %s: %w", set.ID, err)
		}
		for _, m := range screenResult.Matches {
			matched[m.Symbol] = struct{}{}
		}
		result.Reports = append(result.Reports, set.ID)
	}

	o.refreshFundamentals(ctx, matched)

	result.Duration = time.Since(start)
	o.logger.WithFields(map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"scored":   result.Scored,
		"excluded": len(result.Excluded),
		"reports":  len(result.Reports),
		"duration": result.Duration.String(),
	}).Info("Daily run completed")
	return result, nil
}

// sessionGate returns the calendar the run gates on: the stored session
// table re-read now, falling back to the startup index only when the
// table cannot be read or is empty.
func (o *Orchestrator) sessionGate(ctx context.Context) contracts.TradingCalendar {
	stored, err := o.calendarRepo.GetAll(ctx)
	if err != nil {
		o.logger.WithError(err).Warn("Calendar reload failed, gating on startup sessions")
		return o.calendar
	}
	if len(stored) == 0 {
		return o.calendar
	}
	return calendar.New(stored)
}

// refreshUniverse upserts the current exchange listings. Discovery
// failure is never fatal: the stored universe drives the run instead.
func (o *Orchestrator) refreshUniverse(ctx context.Context) {
	for _, market := range []contracts.Market{contracts.MarketNasdaq, contracts.MarketNYSE} {
		tickers, err := o.universe.ListUniverse(ctx, market)
		if err != nil {
			o.logger.WithError(err).WithField("market", string(market)).
				Warn("Universe refresh failed, using stored listings")
			continue
		}
		saved := 0
		for i := range tickers {
			if err := o.tickerRepo.Upsert(ctx, &tickers[i]); err != nil {
				o.logger.WithError(err).WithField("symbol", tickers[i].Symbol).Warn("Ticker upsert failed")
				continue
			}
			saved++
		}
		o.logger.WithFields(map[string]interface{}{
			"market": string(market),
			"saved":  saved,
		}).Info("Universe refreshed")
	}
}

// refreshFundamentals re-pulls fundamentals for the symbols that
// matched a screen, so the next run's candidates carry fresh snapshots.
// Skipped without a provider; a per-symbol failure is never fatal.
func (o *Orchestrator) refreshFundamentals(ctx context.Context, symbols map[string]struct{}) {
	if o.fundamentals == nil || len(symbols) == 0 {
		return
	}
	updated := 0
	for sym := range symbols {
		records, err := o.fundamentals.GetFundamentals(ctx, sym)
		if err != nil {
			o.logger.WithError(err).WithField("symbol", sym).Warn("Fundamentals refresh failed")
			continue
		}
		if len(records) == 0 {
			continue
		}
		if err := o.fundamentalsRepo.SaveBatch(ctx, records); err != nil {
			o.logger.WithError(err).WithField("symbol", sym).Warn("Fundamentals upsert failed")
			continue
		}
		updated++
	}
	o.logger.WithField("updated", updated).Debug("Fundamentals refreshed for matched tickers")
}

// loadSeries is the pool's per-ticker load path: sync (unless skipped),
// read the stored series, and validate its ordering before metrics are
// computed from it.
func (o *Orchestrator) loadSeries(date time.Time, skipSync bool, synced *atomic.Int64) rolling.LoadFunc {
	return func(ctx context.Context, symbol string) ([]contracts.DailyBar, error) {
		if !skipSync {
			sr, err := o.syncer.SyncTicker(ctx, symbol, date)
			if err != nil {
				return nil, err
			}
			if sr.NewBars > 0 || sr.FullReload {
				synced.Add(1)
			}
			if sr.Delisted {
				return nil, fmt.Errorf("marked delisted during sync: %w", contracts.ErrNotFound)
			}
		}
		bars, err := o.priceRepo.GetSeries(ctx, symbol)
		if err != nil {
			return nil, err
		}
		series, err := marketdata.NewSeries(symbol, bars)
		if err != nil {
			return nil, err
		}
		return series.Bars, nil
	}
}

// RefreshCalendar derives trading sessions from the benchmark series.
// Runs weekly and before the first ever daily run.
func (o *Orchestrator) RefreshCalendar(ctx context.Context) (int, error) {
	return RefreshSessions(ctx, o.syncer, o.priceRepo, o.calendarRepo, o.logger)
}

// RefreshSessions syncs the benchmark and stores every date the index
// printed a bar as a trading session. Standalone so startup can bootstrap
// an empty calendar before the orchestrator exists.
func RefreshSessions(
	ctx context.Context,
	syncer *marketdata.Syncer,
	prices contracts.PriceRepository,
	sessions contracts.CalendarRepository,
	log *logger.Logger,
) (int, error) {
	if _, err := syncer.SyncTicker(ctx, contracts.BenchmarkSymbol, contracts.Day(time.Now().UTC())); err != nil {
		return 0, fmt.Errorf("sync benchmark for calendar: %w", err)
	}
	bars, err := prices.GetSeries(ctx, contracts.BenchmarkSymbol)
	if err != nil {
		return 0, fmt.Errorf("load benchmark series: %w", err)
	}
	dates := make([]time.Time, 0, len(bars))
	for _, b := range bars {
		dates = append(dates, b.Date)
	}
	if err := sessions.SaveBatch(ctx, dates); err != nil {
		return 0, fmt.Errorf("save trading sessions: %w", err)
	}
	log.WithField("sessions", len(dates)).Info("Trading calendar refreshed")
	return len(dates), nil
}
