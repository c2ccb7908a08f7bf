package rolling

import (
	"fmt"
	"sync"
	"time"

	"github.com/uswizard/backend/internal/contracts"
)

// Config fixes the windows the engine maintains. Values come from the
// strategy file; the zero value is unusable, call Default() or validate.
type Config struct {
	MAWindows         []int
	MomentumLookbacks []int
}

// Default returns the windows used when the strategy file stays silent:
// the 50/150/200-day averages and the 1/3/6-month momentum horizons.
func Default() Config {
	return Config{
		MAWindows:         []int{50, 150, 200},
		MomentumLookbacks: []int{21, 63, 126},
	}
}

func (c Config) validate() error {
	if len(c.MAWindows) == 0 {
		return fmt.Errorf("rolling: no MA windows configured")
	}
	for _, w := range c.MAWindows {
		if w < 1 {
			return fmt.Errorf("rolling: invalid MA window %d", w)
		}
	}
	for _, m := range c.MomentumLookbacks {
		if m < 1 {
			return fmt.Errorf("rolling: invalid momentum lookback %d", m)
		}
	}
	return nil
}

// tickerState is the incremental per-ticker accumulator. sums holds one
// moving sum per MA window so an append is O(windows), not O(window size).
type tickerState struct {
	mu     sync.Mutex
	symbol string
	dates  []time.Time
	closes []float64
	sums   map[int]float64
}

// Engine computes simple moving averages and momentum ratios over
// ascending adjusted-close series, one independent state per ticker.
// All methods are safe for concurrent use; operations on different
// tickers never contend.
type Engine struct {
	cfg Config

	mu     sync.RWMutex
	states map[string]*tickerState
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		states: make(map[string]*tickerState),
	}, nil
}

func (e *Engine) state(symbol string) *tickerState {
	e.mu.RLock()
	st, ok := e.states[symbol]
	e.mu.RUnlock()
	if ok {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok = e.states[symbol]; ok {
		return st
	}
	st = &tickerState{symbol: symbol, sums: make(map[int]float64)}
	e.states[symbol] = st
	return st
}

// Append ingests one trailing bar and returns the metrics defined at that
// date. A bar not strictly after the ticker's last known date is rejected
// with ErrDataInconsistency; callers recovering from a corporate action
// must Invalidate first.
func (e *Engine) Append(b contracts.DailyBar) (contracts.RollingMetric, error) {
	return e.appendTo(e.state(b.Symbol), b)
}

func (e *Engine) appendTo(st *tickerState, b contracts.DailyBar) (contracts.RollingMetric, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	day := contracts.Day(b.Date)
	if n := len(st.dates); n > 0 && !day.After(st.dates[n-1]) {
		return contracts.RollingMetric{}, fmt.Errorf(
			"rolling: %s bar %s not after last %s: %w",
			st.symbol, day.Format("2006-01-02"), st.dates[n-1].Format("2006-01-02"),
			contracts.ErrDataInconsistency)
	}

	st.dates = append(st.dates, day)
	st.closes = append(st.closes, b.AdjClose)
	n := len(st.closes)
	for _, w := range e.cfg.MAWindows {
		st.sums[w] += b.AdjClose
		if n > w {
			st.sums[w] -= st.closes[n-1-w]
		}
	}

	return e.metricAt(st, n-1, b.Volume), nil
}

// metricAt builds the metric for index i. Windows and lookbacks without
// enough history are simply absent from the maps. Caller holds st.mu.
func (e *Engine) metricAt(st *tickerState, i int, volume int64) contracts.RollingMetric {
	m := contracts.RollingMetric{
		Symbol:   st.symbol,
		Date:     st.dates[i],
		AdjClose: st.closes[i],
		Volume:   volume,
		MA:       make(map[int]float64),
		Momentum: make(map[int]float64),
	}
	n := i + 1
	for _, w := range e.cfg.MAWindows {
		if n >= w {
			m.MA[w] = st.sums[w] / float64(w)
		}
	}
	for _, l := range e.cfg.MomentumLookbacks {
		if n > l {
			base := st.closes[i-l]
			if base != 0 {
				m.Momentum[l] = st.closes[i]/base - 1
			}
		}
	}
	return m
}

// Invalidate drops all state for symbol from the given date forward and
// rebuilds the moving sums from the retained prefix. Bars at or after
// from must be re-appended by the caller. Holds only that ticker's lock.
func (e *Engine) Invalidate(symbol string, from time.Time) {
	st := e.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	day := contracts.Day(from)
	keep := len(st.dates)
	for i, d := range st.dates {
		if !d.Before(day) {
			keep = i
			break
		}
	}
	st.dates = st.dates[:keep]
	st.closes = st.closes[:keep]

	for _, w := range e.cfg.MAWindows {
		sum := 0.0
		lo := keep - w
		if lo < 0 {
			lo = 0
		}
		for _, c := range st.closes[lo:keep] {
			sum += c
		}
		st.sums[w] = sum
	}
}

// Reset discards all state for symbol.
func (e *Engine) Reset(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.states, symbol)
}

// ComputeSeries resets the ticker and replays a full ascending series,
// returning one metric per bar. State is keyed by the symbol argument,
// whatever the bars claim; a disordered bar surfaces as
// ErrDataInconsistency.
func (e *Engine) ComputeSeries(symbol string, bars []contracts.DailyBar) ([]contracts.RollingMetric, error) {
	e.Reset(symbol)
	st := e.state(symbol)
	out := make([]contracts.RollingMetric, 0, len(bars))
	for _, b := range bars {
		m, err := e.appendTo(st, b)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// Latest returns the metric at the ticker's most recent appended date, or
// false when no bars have been ingested.
func (e *Engine) Latest(symbol string) (contracts.RollingMetric, bool) {
	st := e.state(symbol)
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.dates) == 0 {
		return contracts.RollingMetric{}, false
	}
	return e.metricAt(st, len(st.dates)-1, 0), true
}
