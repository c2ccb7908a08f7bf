package marketdata

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/pkg/logger"
)

type fakeProvider struct {
	bars    []contracts.DailyBar
	actions []contracts.CorporateAction
}

func (f *fakeProvider) GetDailyBars(_ context.Context, symbol string, from, to time.Time) ([]contracts.DailyBar, error) {
	var out []contracts.DailyBar
	for _, b := range f.bars {
		if b.Symbol == symbol && !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeProvider) GetCorporateActions(_ context.Context, symbol string, since time.Time) ([]contracts.CorporateAction, error) {
	var out []contracts.CorporateAction
	for _, a := range f.actions {
		if a.Symbol == symbol {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakePriceRepo struct {
	series   map[string][]contracts.DailyBar
	replaced []string
}

func newFakePriceRepo() *fakePriceRepo {
	return &fakePriceRepo{series: make(map[string][]contracts.DailyBar)}
}

func (f *fakePriceRepo) GetSeries(_ context.Context, symbol string) ([]contracts.DailyBar, error) {
	return f.series[symbol], nil
}

func (f *fakePriceRepo) GetRange(_ context.Context, symbol string, from, to time.Time) ([]contracts.DailyBar, error) {
	var out []contracts.DailyBar
	for _, b := range f.series[symbol] {
		if !b.Date.Before(from) && !b.Date.After(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakePriceRepo) LastDate(_ context.Context, symbol string) (time.Time, error) {
	bars := f.series[symbol]
	if len(bars) == 0 {
		return time.Time{}, contracts.ErrNotFound
	}
	return bars[len(bars)-1].Date, nil
}

func (f *fakePriceRepo) SaveBatch(_ context.Context, bars []contracts.DailyBar) error {
	for _, b := range bars {
		f.series[b.Symbol] = append(f.series[b.Symbol], b)
	}
	for sym := range f.series {
		sort.Slice(f.series[sym], func(i, j int) bool {
			return f.series[sym][i].Date.Before(f.series[sym][j].Date)
		})
	}
	return nil
}

func (f *fakePriceRepo) ReplaceSeries(_ context.Context, symbol string, bars []contracts.DailyBar) error {
	f.series[symbol] = append([]contracts.DailyBar(nil), bars...)
	f.replaced = append(f.replaced, symbol)
	return nil
}

type fakeTickerRepo struct {
	delisted map[string]bool
	touched  map[string]time.Time
}

func newFakeTickerRepo() *fakeTickerRepo {
	return &fakeTickerRepo{delisted: make(map[string]bool), touched: make(map[string]time.Time)}
}

func (f *fakeTickerRepo) GetBySymbol(context.Context, string) (*contracts.Ticker, error) {
	return nil, contracts.ErrNotFound
}
func (f *fakeTickerRepo) GetActive(context.Context) ([]contracts.Ticker, error) { return nil, nil }
func (f *fakeTickerRepo) GetByMarket(context.Context, contracts.Market, bool) ([]contracts.Ticker, error) {
	return nil, nil
}
func (f *fakeTickerRepo) Upsert(context.Context, *contracts.Ticker) error { return nil }
func (f *fakeTickerRepo) MarkDelisted(_ context.Context, symbol string) error {
	f.delisted[symbol] = true
	return nil
}
func (f *fakeTickerRepo) TouchBarsUpdated(_ context.Context, symbol string, at time.Time) error {
	f.touched[symbol] = at
	return nil
}

func TestSyncTicker_InitialLoad(t *testing.T) {
	provider := &fakeProvider{bars: []contracts.DailyBar{
		bar("AAPL", 2024, 7, 1, 100),
		bar("AAPL", 2024, 7, 2, 101),
	}}
	prices := newFakePriceRepo()
	tickers := newFakeTickerRepo()

	s := NewSyncer(provider, prices, tickers, logger.NewNop())
	result, err := s.SyncTicker(context.Background(), "AAPL", time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 2, result.NewBars)
	assert.False(t, result.FullReload)
	assert.Len(t, prices.series["AAPL"], 2)
	assert.Contains(t, tickers.touched, "AAPL")
}

func TestSyncTicker_IncrementalAppend(t *testing.T) {
	provider := &fakeProvider{bars: []contracts.DailyBar{
		bar("AAPL", 2024, 7, 1, 100),
		bar("AAPL", 2024, 7, 2, 101),
		bar("AAPL", 2024, 7, 3, 102),
	}}
	prices := newFakePriceRepo()
	require.NoError(t, prices.SaveBatch(context.Background(), []contracts.DailyBar{
		bar("AAPL", 2024, 7, 1, 100),
		bar("AAPL", 2024, 7, 2, 101),
	}))

	s := NewSyncer(provider, prices, newFakeTickerRepo(), logger.NewNop())
	result, err := s.SyncTicker(context.Background(), "AAPL", time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, 1, result.NewBars, "only the missing trailing bar is fetched")
	assert.False(t, result.FullReload)
	assert.Empty(t, prices.replaced)
}

func TestSyncTicker_SplitTriggersFullReload(t *testing.T) {
	// Post-split the provider returns halved adjusted closes for history.
	provider := &fakeProvider{
		bars: []contracts.DailyBar{
			bar("NVDA", 2024, 7, 1, 50),
			bar("NVDA", 2024, 7, 2, 51),
			bar("NVDA", 2024, 7, 3, 52),
		},
		actions: []contracts.CorporateAction{{
			Symbol: "NVDA",
			Date:   time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC),
			Kind:   contracts.ActionSplit,
			Value:  2,
		}},
	}
	prices := newFakePriceRepo()
	require.NoError(t, prices.SaveBatch(context.Background(), []contracts.DailyBar{
		bar("NVDA", 2024, 7, 1, 100),
		bar("NVDA", 2024, 7, 2, 102),
	}))

	s := NewSyncer(provider, prices, newFakeTickerRepo(), logger.NewNop())
	result, err := s.SyncTicker(context.Background(), "NVDA", time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, result.FullReload)
	assert.Equal(t, []string{"NVDA"}, prices.replaced)
	require.Len(t, prices.series["NVDA"], 3)
	assert.Equal(t, 50.0, prices.series["NVDA"][0].AdjClose, "history carries the new adjustment")
}

type fakeSplitsSource struct {
	actions []contracts.CorporateAction
}

func (f *fakeSplitsSource) FetchRecentSplits(context.Context, time.Time) ([]contracts.CorporateAction, error) {
	return f.actions, nil
}

func TestSyncTicker_SecondarySplitsFeedForcesReload(t *testing.T) {
	// The chart events feed reports nothing, but the splits calendar
	// already lists the action. The series must still be replaced.
	provider := &fakeProvider{bars: []contracts.DailyBar{
		bar("NVDA", 2024, 7, 1, 50),
		bar("NVDA", 2024, 7, 2, 51),
		bar("NVDA", 2024, 7, 3, 52),
	}}
	prices := newFakePriceRepo()
	require.NoError(t, prices.SaveBatch(context.Background(), []contracts.DailyBar{
		bar("NVDA", 2024, 7, 1, 100),
		bar("NVDA", 2024, 7, 2, 102),
	}))

	splits := &fakeSplitsSource{actions: []contracts.CorporateAction{{
		Symbol: "NVDA",
		Date:   time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC),
		Kind:   contracts.ActionSplit,
		Value:  2,
	}}}

	s := NewSyncer(provider, prices, newFakeTickerRepo(), logger.NewNop()).
		WithSplitsSource(splits)
	s.PrimeSplits(context.Background(), time.Date(2024, 6, 26, 0, 0, 0, 0, time.UTC))

	result, err := s.SyncTicker(context.Background(), "NVDA", time.Date(2024, 7, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, result.FullReload)
	assert.Equal(t, []string{"NVDA"}, prices.replaced)
}

func TestSyncTicker_QuietSeriesMarksDelisted(t *testing.T) {
	provider := &fakeProvider{} // nothing new to fetch
	prices := newFakePriceRepo()
	require.NoError(t, prices.SaveBatch(context.Background(), []contracts.DailyBar{
		bar("GONE", 2024, 6, 1, 10),
	}))
	tickers := newFakeTickerRepo()

	s := NewSyncer(provider, prices, tickers, logger.NewNop())
	result, err := s.SyncTicker(context.Background(), "GONE", time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.True(t, result.Delisted)
	assert.True(t, tickers.delisted["GONE"])
}
