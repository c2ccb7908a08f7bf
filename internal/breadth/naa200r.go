package breadth

import (
	"fmt"
	"time"

	"github.com/uswizard/backend/internal/contracts"
)

// UniverseNAA200R names the stored breadth series: percentage of the
// Nasdaq reference universe trading above its 200-day moving average.
const UniverseNAA200R = "NAA200R"

// Config pins the reference universe. Recently listed tickers and
// derivative symbols (units, warrants, rights carry 5-character symbols)
// distort the ratio, so both are filtered out.
type Config struct {
	Window          int
	Market          contracts.Market
	MaxSymbolLength int
	MinListedYears  int
}

func DefaultConfig() Config {
	return Config{
		Window:          200,
		Market:          contracts.MarketNasdaq,
		MaxSymbolLength: 4,
		MinListedYears:  1,
	}
}

func (c Config) validate() error {
	if c.Window < 1 {
		return fmt.Errorf("breadth: invalid window %d", c.Window)
	}
	if c.MaxSymbolLength < 1 {
		return fmt.Errorf("breadth: invalid max symbol length %d", c.MaxSymbolLength)
	}
	return nil
}

// Aggregator computes the NAA200R value for one date from the universe
// metadata and that date's metric snapshot.
type Aggregator struct {
	cfg Config
}

func NewAggregator(cfg Config) (*Aggregator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg}, nil
}

// Eligible reports whether a ticker belongs to the reference universe on
// the given date. An unknown IPO year (0) is treated as an old listing.
func (a *Aggregator) Eligible(t contracts.Ticker, asOf time.Time) bool {
	if t.Delisted || t.Market != a.cfg.Market {
		return false
	}
	if len(t.Symbol) > a.cfg.MaxSymbolLength {
		return false
	}
	if t.IPOYear != 0 && t.IPOYear > asOf.Year()-a.cfg.MinListedYears {
		return false
	}
	return true
}

// Compute derives the breadth value for date. Members without a defined
// MA over the configured window are excluded from numerator and
// denominator alike; an empty denominator yields ErrInsufficientHistory
// and the date stays undefined. A member counts as above only when its
// adjusted close is strictly greater than the average.
func (a *Aggregator) Compute(date time.Time, tickers []contracts.Ticker, metrics map[string]contracts.RollingMetric) (contracts.BreadthValue, error) {
	day := contracts.Day(date)

	above, defined := 0, 0
	for _, t := range tickers {
		if !a.Eligible(t, day) {
			continue
		}
		m, ok := metrics[t.Symbol]
		if !ok {
			continue
		}
		ma, ok := m.MAValue(a.cfg.Window)
		if !ok {
			continue
		}
		defined++
		if m.AdjClose > ma {
			above++
		}
	}

	if defined == 0 {
		return contracts.BreadthValue{}, fmt.Errorf(
			"breadth %s on %s: no member has %d bars of history: %w",
			UniverseNAA200R, day.Format("2006-01-02"), a.cfg.Window,
			contracts.ErrInsufficientHistory)
	}

	return contracts.BreadthValue{
		Universe: UniverseNAA200R,
		Date:     day,
		Value:    float64(above) / float64(defined) * 100,
		Above:    above,
		Defined:  defined,
	}, nil
}
