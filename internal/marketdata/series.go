package marketdata

import (
	"fmt"
	"time"

	"github.com/uswizard/backend/internal/contracts"
)

// Series is one ticker's ordered daily bar history. Construction validates
// the ordering invariant; a Series that exists is safe to window over.
type Series struct {
	Symbol string
	Bars   []contracts.DailyBar
}

// NewSeries validates bars and builds a Series. Duplicate or out-of-order
// dates fail with ErrDataInconsistency: the ticker is rejected for the run,
// not repaired in place.
func NewSeries(symbol string, bars []contracts.DailyBar) (*Series, error) {
	for i := range bars {
		bars[i].Date = contracts.Day(bars[i].Date)
		if i == 0 {
			continue
		}
		if !bars[i].Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("%s: bar %s not after %s: %w",
				symbol,
				bars[i].Date.Format("2006-01-02"),
				bars[i-1].Date.Format("2006-01-02"),
				contracts.ErrDataInconsistency)
		}
	}

	return &Series{Symbol: symbol, Bars: bars}, nil
}

// Len returns the number of bars.
func (s *Series) Len() int {
	return len(s.Bars)
}

// LastDate returns the date of the most recent bar.
func (s *Series) LastDate() (time.Time, bool) {
	if len(s.Bars) == 0 {
		return time.Time{}, false
	}
	return s.Bars[len(s.Bars)-1].Date, true
}

// AdjCloses returns the adjusted close column in date order.
func (s *Series) AdjCloses() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.AdjClose
	}
	return out
}

// TruncateBefore returns the bars strictly before date. Used to split a
// series at the earliest date affected by a corporate action.
func (s *Series) TruncateBefore(date time.Time) []contracts.DailyBar {
	day := contracts.Day(date)
	for i, b := range s.Bars {
		if !b.Date.Before(day) {
			return s.Bars[:i]
		}
	}
	return s.Bars
}

// NeedsFullReload reports whether any corporate action postdates the stored
// history. Adjusted closes before the action date become stale as a block,
// so the answer to any such action is replace-the-series, not patch cells.
func NeedsFullReload(actions []contracts.CorporateAction, lastStored time.Time) bool {
	for _, a := range actions {
		if a.Date.After(lastStored) {
			return true
		}
	}
	return false
}
