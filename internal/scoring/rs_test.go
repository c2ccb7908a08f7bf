package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uswizard/backend/internal/contracts"
)

var testDay = time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC)

// metricWith builds a snapshot entry whose momentum horizons produce the
// given composite under single-lookback weight 1.0 configs.
func metricWith(symbol string, momentum map[int]float64) contracts.RollingMetric {
	return contracts.RollingMetric{Symbol: symbol, Date: testDay, Momentum: momentum}
}

func singleHorizonConfig(minUniverse int) Config {
	return Config{Lookbacks: []int{21}, Weights: []float64{1.0}, MinUniverse: minUniverse}
}

func TestScorer_FractionalRankTies(t *testing.T) {
	s, err := NewScorer(singleHorizonConfig(3))
	require.NoError(t, err)

	metrics := []contracts.RollingMetric{
		metricWith("CCC", map[int]float64{21: 0.10}),
		metricWith("AAA", map[int]float64{21: 0.30}),
		metricWith("BBB", map[int]float64{21: 0.30}),
	}

	scores, excluded, err := s.Score(testDay, metrics)
	require.NoError(t, err)
	assert.Empty(t, excluded)
	require.Len(t, scores, 3)

	bySymbol := make(map[string]float64)
	for _, sc := range scores {
		bySymbol[sc.Symbol] = sc.Score
	}
	assert.InDelta(t, 83.33, bySymbol["AAA"], 0.01)
	assert.InDelta(t, 83.33, bySymbol["BBB"], 0.01)
	assert.InDelta(t, 33.33, bySymbol["CCC"], 0.01)
}

func TestScorer_WeightedComposite(t *testing.T) {
	cfg := Config{
		Lookbacks:   []int{21, 63, 126},
		Weights:     []float64{0.5, 0.3, 0.2},
		MinUniverse: 1,
	}
	s, err := NewScorer(cfg)
	require.NoError(t, err)

	metrics := []contracts.RollingMetric{
		metricWith("AAPL", map[int]float64{21: 0.10, 63: 0.20, 126: 0.40}),
	}

	scores, _, err := s.Score(testDay, metrics)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.InDelta(t, 0.5*0.10+0.3*0.20+0.2*0.40, scores[0].Composite, 1e-12)
	assert.Equal(t, map[int]float64{21: 0.10, 63: 0.20, 126: 0.40}, scores[0].Horizons)
	assert.Equal(t, 100.0, scores[0].Score, "a universe of one is the 100th percentile")
}

func TestScorer_UndefinedHorizonExcludes(t *testing.T) {
	s, err := NewScorer(Config{
		Lookbacks:   []int{21, 63},
		Weights:     []float64{0.6, 0.4},
		MinUniverse: 1,
	})
	require.NoError(t, err)

	metrics := []contracts.RollingMetric{
		metricWith("FULL", map[int]float64{21: 0.10, 63: 0.05}),
		metricWith("YOUNG", map[int]float64{21: 0.50}), // no 63-day history yet
	}

	scores, excluded, err := s.Score(testDay, metrics)
	require.NoError(t, err)
	assert.Equal(t, []string{"YOUNG"}, excluded)
	require.Len(t, scores, 1)
	assert.Equal(t, "FULL", scores[0].Symbol)
}

func TestScorer_InsufficientUniverse(t *testing.T) {
	s, err := NewScorer(singleHorizonConfig(50))
	require.NoError(t, err)

	metrics := make([]contracts.RollingMetric, 0, 49)
	for i := 0; i < 49; i++ {
		metrics = append(metrics, metricWith(fmt.Sprintf("S%02d", i), map[int]float64{21: float64(i)}))
	}

	_, _, err = s.Score(testDay, metrics)
	assert.ErrorIs(t, err, contracts.ErrInsufficientUniverse)
}

func TestScorer_DeterministicAcrossShuffles(t *testing.T) {
	s, err := NewScorer(singleHorizonConfig(1))
	require.NoError(t, err)

	forward := []contracts.RollingMetric{
		metricWith("AAA", map[int]float64{21: 0.30}),
		metricWith("BBB", map[int]float64{21: 0.30}),
		metricWith("CCC", map[int]float64{21: 0.10}),
		metricWith("DDD", map[int]float64{21: -0.05}),
	}
	reversed := make([]contracts.RollingMetric, len(forward))
	for i, m := range forward {
		reversed[len(forward)-1-i] = m
	}

	first, _, err := s.Score(testDay, forward)
	require.NoError(t, err)
	second, _, err := s.Score(testDay, reversed)
	require.NoError(t, err)

	assert.Equal(t, first, second, "input order must not affect the ranking")
	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		better := prev.Composite > cur.Composite ||
			(prev.Composite == cur.Composite && prev.Symbol < cur.Symbol)
		assert.True(t, better, "output ordered by composite desc, symbol asc")
	}
}

func TestScorer_PercentileBounds(t *testing.T) {
	s, err := NewScorer(singleHorizonConfig(1))
	require.NoError(t, err)

	metrics := make([]contracts.RollingMetric, 0, 200)
	for i := 0; i < 200; i++ {
		metrics = append(metrics, metricWith(fmt.Sprintf("S%03d", i), map[int]float64{21: float64(i) / 100}))
	}

	scores, _, err := s.Score(testDay, metrics)
	require.NoError(t, err)
	for _, sc := range scores {
		assert.GreaterOrEqual(t, sc.Score, 0.0)
		assert.LessOrEqual(t, sc.Score, 100.0)
	}
	assert.Equal(t, "S199", scores[0].Symbol)
	assert.Equal(t, 100.0, scores[0].Score)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"no lookbacks", Config{Weights: []float64{1}, MinUniverse: 1}},
		{"length mismatch", Config{Lookbacks: []int{21, 63}, Weights: []float64{1}, MinUniverse: 1}},
		{"zero weight", Config{Lookbacks: []int{21}, Weights: []float64{0}, MinUniverse: 1}},
		{"zero min universe", Config{Lookbacks: []int{21}, Weights: []float64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScorer(tt.cfg)
			assert.Error(t, err)
		})
	}

	_, err := NewScorer(DefaultConfig())
	assert.NoError(t, err)
}
