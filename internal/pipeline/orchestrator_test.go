package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uswizard/backend/internal/breadth"
	"github.com/uswizard/backend/internal/calendar"
	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/internal/rolling"
	"github.com/uswizard/backend/internal/scoring"
	"github.com/uswizard/backend/internal/screening"
	"github.com/uswizard/backend/internal/strategy"
	"github.com/uswizard/backend/pkg/logger"
)

// In-memory repositories. Only the methods the scored-from-storage path
// touches are meaningful; the rest satisfy the interfaces.

type memCalendarRepo struct{ sessions []time.Time }

func (m *memCalendarRepo) GetAll(context.Context) ([]time.Time, error) {
	return append([]time.Time(nil), m.sessions...), nil
}
func (m *memCalendarRepo) SaveBatch(_ context.Context, dates []time.Time) error {
	m.sessions = dates
	return nil
}

type memTickerRepo struct{ tickers []contracts.Ticker }

func (m *memTickerRepo) GetBySymbol(context.Context, string) (*contracts.Ticker, error) {
	return nil, contracts.ErrNotFound
}
func (m *memTickerRepo) GetActive(context.Context) ([]contracts.Ticker, error) {
	var out []contracts.Ticker
	for _, t := range m.tickers {
		if !t.Delisted {
			out = append(out, t)
		}
	}
	return out, nil
}
func (m *memTickerRepo) GetByMarket(context.Context, contracts.Market, bool) ([]contracts.Ticker, error) {
	return m.tickers, nil
}
func (m *memTickerRepo) Upsert(context.Context, *contracts.Ticker) error           { return nil }
func (m *memTickerRepo) MarkDelisted(context.Context, string) error                { return nil }
func (m *memTickerRepo) TouchBarsUpdated(context.Context, string, time.Time) error { return nil }

type memPriceRepo struct {
	series map[string][]contracts.DailyBar
}

func (m *memPriceRepo) GetSeries(_ context.Context, symbol string) ([]contracts.DailyBar, error) {
	return m.series[symbol], nil
}
func (m *memPriceRepo) GetRange(_ context.Context, symbol string, _, _ time.Time) ([]contracts.DailyBar, error) {
	return m.series[symbol], nil
}
func (m *memPriceRepo) LastDate(context.Context, string) (time.Time, error) {
	return time.Time{}, contracts.ErrNotFound
}
func (m *memPriceRepo) SaveBatch(context.Context, []contracts.DailyBar) error { return nil }
func (m *memPriceRepo) ReplaceSeries(context.Context, string, []contracts.DailyBar) error {
	return nil
}

type memRSRepo struct{ saved []contracts.RSScore }

func (m *memRSRepo) GetByDate(context.Context, time.Time) ([]contracts.RSScore, error) {
	return nil, nil
}
func (m *memRSRepo) GetDatesWithScores(context.Context) ([]time.Time, error) { return nil, nil }
func (m *memRSRepo) SaveBatch(_ context.Context, scores []contracts.RSScore) error {
	m.saved = append(m.saved, scores...)
	return nil
}

type memBreadthRepo struct{ saved []contracts.BreadthValue }

func (m *memBreadthRepo) Get(context.Context, string, time.Time) (*contracts.BreadthValue, error) {
	return nil, contracts.ErrNotFound
}
func (m *memBreadthRepo) GetRecent(context.Context, string, int) ([]contracts.BreadthValue, error) {
	return nil, nil
}
func (m *memBreadthRepo) Save(_ context.Context, v *contracts.BreadthValue) error {
	m.saved = append(m.saved, *v)
	return nil
}

type memReportRepo struct {
	saved map[string]*contracts.ScreeningResult
}

func (m *memReportRepo) Get(context.Context, time.Time, string) (*contracts.ScreeningResult, error) {
	return nil, contracts.ErrNotFound
}
func (m *memReportRepo) Save(_ context.Context, r *contracts.ScreeningResult) error {
	if m.saved == nil {
		m.saved = make(map[string]*contracts.ScreeningResult)
	}
	m.saved[r.RuleSetID] = r
	return nil
}

type memMetricRepo struct{}

func (memMetricRepo) GetByDate(context.Context, time.Time) ([]contracts.RollingMetric, error) {
	return nil, nil
}
func (memMetricRepo) GetLatest(context.Context, string) (*contracts.RollingMetric, error) {
	return nil, contracts.ErrNotFound
}
func (memMetricRepo) ReplaceForSymbol(context.Context, string, []contracts.RollingMetric) error {
	return nil
}

// newTestDeps wires a scored-from-storage pipeline over ten tickers with
// 260 sessions of history, plus one stale ticker whose series stops
// early.
func newTestDeps(t *testing.T) (Deps, time.Time) {
	t.Helper()

	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	sessions := make([]time.Time, 260)
	for i := range sessions {
		sessions[i] = start.AddDate(0, 0, i)
	}
	runDate := sessions[len(sessions)-1]

	cal := calendar.New(sessions)

	tickers := make([]contracts.Ticker, 0, 11)
	prices := &memPriceRepo{series: make(map[string][]contracts.DailyBar)}
	for i := 0; i < 10; i++ {
		sym := fmt.Sprintf("TT%02d", i)
		tickers = append(tickers, contracts.Ticker{
			Symbol: sym, Market: contracts.MarketNasdaq, Sector: "Technology", IPOYear: 2000,
		})
		bars := make([]contracts.DailyBar, len(sessions))
		for j, d := range sessions {
			// Higher i, steeper climb: deterministic, distinct momentum.
			price := 100 + float64(i)*float64(j)*0.01
			bars[j] = contracts.DailyBar{
				Symbol: sym, Date: d,
				Open: price, High: price, Low: price, Close: price,
				AdjClose: price, Volume: 1_000_000,
			}
		}
		prices.series[sym] = bars
	}
	// Stale ticker: last bar well before the run date.
	tickers = append(tickers, contracts.Ticker{
		Symbol: "STAL", Market: contracts.MarketNasdaq, Sector: "Energy", IPOYear: 2000,
	})
	prices.series["STAL"] = prices.series["TT00"][:100]

	engine, err := rolling.NewEngine(rolling.Config{
		MAWindows:         []int{50, 150, 200},
		MomentumLookbacks: []int{21},
	})
	require.NoError(t, err)
	scorer, err := scoring.NewScorer(scoring.Config{
		Lookbacks: []int{21}, Weights: []float64{1.0}, MinUniverse: 5,
	})
	require.NoError(t, err)
	agg, err := breadth.NewAggregator(breadth.DefaultConfig())
	require.NoError(t, err)

	strategyCfg := &strategy.Config{
		Meta: strategy.Meta{StrategyID: "test_v1"},
		Screens: []screening.RuleSet{{
			ID:   "rs_leaders",
			Name: "RS leaders",
			Rule: screening.Rule{All: []screening.Rule{
				{Metric: contracts.MetricRSScore, Op: screening.OpGTE, Value: 80.0},
			}},
		}},
	}

	deps := Deps{
		StrategyCfg:  strategyCfg,
		Calendar:     cal,
		Pool:         rolling.NewPool(engine, 4, logger.NewNop()),
		Scorer:       scorer,
		Breadth:      agg,
		Screener:     screening.NewEngine(logger.NewNop()),
		CalendarRepo: &memCalendarRepo{sessions: sessions},
		TickerRepo:   &memTickerRepo{tickers: tickers},
		PriceRepo:    prices,
		MetricRepo:   memMetricRepo{},
		RSRepo:       &memRSRepo{},
		BreadthRepo:  &memBreadthRepo{},
		ReportRepo:   &memReportRepo{},
		Logger:       logger.NewNop(),
	}
	return deps, runDate
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, time.Time, *memRSRepo, *memBreadthRepo, *memReportRepo) {
	t.Helper()

	deps, runDate := newTestDeps(t)
	return NewOrchestrator(deps), runDate,
		deps.RSRepo.(*memRSRepo), deps.BreadthRepo.(*memBreadthRepo), deps.ReportRepo.(*memReportRepo)
}

func TestRun_EndToEndFromStorage(t *testing.T) {
	o, runDate, rsRepo, breadthRepo, reportRepo := newTestOrchestrator(t)

	result, err := o.Run(context.Background(), RunConfig{
		Date: runDate, SkipSync: true, SkipUniverse: true,
	})
	require.NoError(t, err)

	assert.False(t, result.Skipped)
	assert.Equal(t, 10, result.Scored, "ten live tickers ranked")
	assert.Len(t, rsRepo.saved, 10)
	assert.Contains(t, result.Excluded, "STAL")

	require.NotNil(t, result.Breadth)
	require.Len(t, breadthRepo.saved, 1)
	assert.GreaterOrEqual(t, result.Breadth.Value, 0.0)
	assert.LessOrEqual(t, result.Breadth.Value, 100.0)
	assert.Equal(t, 10, result.Breadth.Defined, "stale ticker excluded from breadth")

	report, ok := reportRepo.saved["rs_leaders"]
	require.True(t, ok)
	assert.Contains(t, result.Reports, "rs_leaders")
	assert.Contains(t, report.Excluded, "STAL")
	require.NotEmpty(t, report.Matches)
	for i := 1; i < len(report.Matches); i++ {
		assert.GreaterOrEqual(t, report.Matches[i-1].RSScore, report.Matches[i].RSScore)
	}
	assert.Equal(t, "TT09", report.Matches[0].Symbol, "steepest climber ranks first")
}

func TestRun_GateSeesSessionsStoredAfterStartup(t *testing.T) {
	// The startup index ends the day before the run date, as it does in
	// any process started before the day's calendar refresh. The session
	// table already carries the run date; the gate must reload it rather
	// than skip the run.
	deps, runDate := newTestDeps(t)
	stored, err := deps.CalendarRepo.GetAll(context.Background())
	require.NoError(t, err)
	deps.Calendar = calendar.New(stored[:len(stored)-1])

	o := NewOrchestrator(deps)
	result, err := o.Run(context.Background(), RunConfig{
		Date: runDate, SkipSync: true, SkipUniverse: true,
	})
	require.NoError(t, err)

	assert.False(t, result.Skipped, "run for a stored trading session must not be skipped")
	assert.Equal(t, 10, result.Scored)
}

func TestRun_NonSessionIsSkipped(t *testing.T) {
	o, runDate, rsRepo, _, _ := newTestOrchestrator(t)

	result, err := o.Run(context.Background(), RunConfig{
		Date: runDate.AddDate(0, 0, 1), SkipSync: true, SkipUniverse: true,
	})
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Empty(t, rsRepo.saved)
}
