package contracts

import "time"

// RollingMetric holds the moving-window aggregates for one (ticker, date).
// A window or lookback absent from its map is undefined for that date:
// not zero, not an error. Derived data, recomputable from DailyBar.
type RollingMetric struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`

	// MA maps window length in trading days to the simple moving average of
	// adjusted closes ending at Date.
	MA map[int]float64 `json:"ma"`

	// Momentum maps lookback M to close[t]/close[t-M] - 1, both adjusted.
	Momentum map[int]float64 `json:"momentum"`

	// AdjClose is carried along so breadth and screening do not re-read the
	// bar row.
	AdjClose float64 `json:"adj_close"`
	Volume   int64   `json:"volume"`
}

// MAValue returns the N-day moving average and whether it is defined.
func (m *RollingMetric) MAValue(window int) (float64, bool) {
	v, ok := m.MA[window]
	return v, ok
}

// MomentumValue returns the M-day momentum ratio and whether it is defined.
func (m *RollingMetric) MomentumValue(lookback int) (float64, bool) {
	v, ok := m.Momentum[lookback]
	return v, ok
}

// RSScore is a ticker's percentile rank in [0,100] relative to the full
// universe on a date, plus the raw horizon values behind it. Pure function
// of the metric snapshot; re-running on unchanged data reproduces it
// bit-identically.
type RSScore struct {
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	Score     float64   `json:"score"`
	Composite float64   `json:"composite"`

	// Horizons maps lookback days to the momentum ratio used in the
	// composite.
	Horizons map[int]float64 `json:"horizons"`
}

// BreadthValue is the percentage of a reference universe trading above its
// 200-day moving average on a date. Value is in [0,100]; defined only when
// at least one member has a defined average.
type BreadthValue struct {
	Universe string    `json:"universe"`
	Date     time.Time `json:"date"`
	Value    float64   `json:"value"`
	Above    int       `json:"above"`
	Defined  int       `json:"defined"`
}
