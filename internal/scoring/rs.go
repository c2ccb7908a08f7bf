package scoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/uswizard/backend/internal/contracts"
)

// DefaultMinUniverse is the floor below which a date's ranking is
// considered meaningless and aborted.
const DefaultMinUniverse = 50

// Config is the scoring surface of the strategy file. Lookbacks and
// Weights are parallel; weights need not sum to one, only the relative
// proportions matter for ranking.
type Config struct {
	Lookbacks   []int
	Weights     []float64
	MinUniverse int
}

// DefaultConfig weights the most recent month heaviest, the way the
// composite behaves in practice for momentum leaders.
func DefaultConfig() Config {
	return Config{
		Lookbacks:   []int{21, 63, 126},
		Weights:     []float64{0.5, 0.3, 0.2},
		MinUniverse: DefaultMinUniverse,
	}
}

func (c Config) validate() error {
	if len(c.Lookbacks) == 0 {
		return fmt.Errorf("scoring: no lookbacks configured")
	}
	if len(c.Lookbacks) != len(c.Weights) {
		return fmt.Errorf("scoring: %d lookbacks but %d weights", len(c.Lookbacks), len(c.Weights))
	}
	for i, w := range c.Weights {
		if w <= 0 {
			return fmt.Errorf("scoring: weight %d must be positive, got %v", i, w)
		}
	}
	if c.MinUniverse < 1 {
		return fmt.Errorf("scoring: min universe must be at least 1, got %d", c.MinUniverse)
	}
	return nil
}

// Scorer ranks tickers by weighted composite momentum and converts ranks
// to percentiles in [0, 100].
type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) (*Scorer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Scorer{cfg: cfg}, nil
}

// Score ranks one date's metric snapshot. Tickers missing any configured
// momentum horizon are left out of the ranking and returned in excluded.
// Fewer defined tickers than MinUniverse aborts the date with
// ErrInsufficientUniverse.
//
// The result is deterministic for a given snapshot: candidates are
// ordered by composite descending with symbol as the tie-break, then tied
// composites share the mean percentile of their span (fractional
// ranking).
func (s *Scorer) Score(date time.Time, metrics []contracts.RollingMetric) ([]contracts.RSScore, []string, error) {
	day := contracts.Day(date)

	var (
		candidates []contracts.RSScore
		excluded   []string
	)
	for _, m := range metrics {
		score, ok := s.composite(m)
		if !ok {
			excluded = append(excluded, m.Symbol)
			continue
		}
		score.Date = day
		candidates = append(candidates, score)
	}
	sort.Strings(excluded)

	if len(candidates) < s.cfg.MinUniverse {
		return nil, excluded, fmt.Errorf(
			"scoring %s: %d of %d tickers defined, need %d: %w",
			day.Format("2006-01-02"), len(candidates), len(metrics), s.cfg.MinUniverse,
			contracts.ErrInsufficientUniverse)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Composite != candidates[j].Composite {
			return candidates[i].Composite > candidates[j].Composite
		}
		return candidates[i].Symbol < candidates[j].Symbol
	})

	assignPercentiles(candidates)
	return candidates, excluded, nil
}

// composite computes the weighted momentum sum, reporting false when any
// horizon is undefined for the ticker.
func (s *Scorer) composite(m contracts.RollingMetric) (contracts.RSScore, bool) {
	horizons := make(map[int]float64, len(s.cfg.Lookbacks))
	total := 0.0
	for i, l := range s.cfg.Lookbacks {
		v, ok := m.MomentumValue(l)
		if !ok {
			return contracts.RSScore{}, false
		}
		horizons[l] = v
		total += s.cfg.Weights[i] * v
	}
	return contracts.RSScore{
		Symbol:    m.Symbol,
		Composite: total,
		Horizons:  horizons,
	}, true
}

// assignPercentiles converts descending-rank positions to percentiles.
// A tie group spanning positions i..j (rank i+1..j+1 from the top) gets
// the percentile of its mean rank, so equal composites always score
// equally regardless of symbol order.
func assignPercentiles(ranked []contracts.RSScore) {
	count := float64(len(ranked))
	for i := 0; i < len(ranked); {
		j := i
		for j+1 < len(ranked) && ranked[j+1].Composite == ranked[i].Composite {
			j++
		}
		meanRank := float64(i+j)/2 + 1
		pct := (count - meanRank + 1) / count * 100
		for k := i; k <= j; k++ {
			ranked[k].Score = pct
		}
		i = j + 1
	}
}
