package rolling

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/pkg/logger"
)

func TestPool_RunComputesEveryTicker(t *testing.T) {
	e := newTestEngine(t, Config{MAWindows: []int{5}, MomentumLookbacks: []int{3}})
	pool := NewPool(e, 4, logger.NewNop())

	series := map[string][]contracts.DailyBar{
		"AAPL": testBars("AAPL", seq(20)),
		"MSFT": testBars("MSFT", seq(10)),
		"NVDA": testBars("NVDA", seq(3)), // below every window: defined maps stay empty
	}
	load := func(_ context.Context, symbol string) ([]contracts.DailyBar, error) {
		return series[symbol], nil
	}

	results, excluded := pool.Run(context.Background(), []string{"AAPL", "MSFT", "NVDA"}, load)
	require.Len(t, results, 3)
	assert.Empty(t, excluded)

	bySymbol := make(map[string][]contracts.RollingMetric)
	for _, r := range results {
		require.NoError(t, r.Err)
		bySymbol[r.Symbol] = r.Metrics
	}
	assert.Len(t, bySymbol["AAPL"], 20)
	assert.Len(t, bySymbol["MSFT"], 10)
	for _, m := range bySymbol["NVDA"] {
		assert.Empty(t, m.MA)
		assert.Empty(t, m.Momentum)
	}
}

func TestPool_FailedTickerIsExcludedNotFatal(t *testing.T) {
	e := newTestEngine(t, Default())
	pool := NewPool(e, 2, logger.NewNop())

	load := func(_ context.Context, symbol string) ([]contracts.DailyBar, error) {
		if symbol == "BAD" {
			return nil, fmt.Errorf("fetch BAD: %w", contracts.ErrProviderFailure)
		}
		return testBars(symbol, seq(300)), nil
	}

	results, excluded := pool.Run(context.Background(), []string{"AAPL", "BAD", "MSFT"}, load)
	require.Len(t, results, 3)
	require.Len(t, excluded, 1)
	assert.Contains(t, excluded, "BAD")

	ok := 0
	for _, r := range results {
		if r.Err == nil {
			ok++
			assert.Len(t, r.Metrics, 300)
		}
	}
	assert.Equal(t, 2, ok)
}

func TestPool_JoinIsABarrier(t *testing.T) {
	e := newTestEngine(t, Config{MAWindows: []int{5}, MomentumLookbacks: []int{3}})
	pool := NewPool(e, 8, logger.NewNop())

	symbols := make([]string, 50)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("SYM%02d", i)
	}
	load := func(_ context.Context, symbol string) ([]contracts.DailyBar, error) {
		return testBars(symbol, seq(40)), nil
	}

	results, excluded := pool.Run(context.Background(), symbols, load)
	assert.Empty(t, excluded)

	// Every ticker is present exactly once when Run returns.
	got := make([]string, 0, len(results))
	for _, r := range results {
		got = append(got, r.Symbol)
	}
	sort.Strings(got)
	assert.Equal(t, symbols, got)
}

func TestPool_DefaultsWorkerCount(t *testing.T) {
	e := newTestEngine(t, Default())
	pool := NewPool(e, 0, logger.NewNop())
	assert.Greater(t, pool.workers, 0)
}
