package contracts

import "time"

// Metrics is the per-ticker metric map screening rules evaluate against.
// Values are float64 for numeric metrics and string for categorical ones
// (sector, market). Metrics absent from the map are undefined; a rule
// referencing an undefined metric fails for that ticker.
type Metrics map[string]interface{}

// Well-known metric names. Rule sets are data, so these are conventions,
// not an enum: a new metric only needs a map entry and a rule referencing it.
const (
	MetricRSScore   = "rs_score"
	MetricClose     = "close"
	MetricVolume    = "volume"
	MetricSector    = "sector"
	MetricMarket    = "market"
	MetricMA50      = "ma_50"
	MetricMA150     = "ma_150"
	MetricMA200     = "ma_200"
	MetricEPS       = "eps"
	MetricNetMargin = "net_margin"

	// Derived ratios let a flat leaf express a trend-alignment chain
	// (close > MA50 > MA150 > MA200) as `ratio gt 1`.
	MetricCloseOverMA50  = "close_over_ma50"
	MetricMA50OverMA150  = "ma50_over_ma150"
	MetricMA150OverMA200 = "ma150_over_ma200"
)

// ScreeningMatch is one ticker that passed a rule set, with the metric
// values that satisfied it.
type ScreeningMatch struct {
	Symbol  string  `json:"symbol"`
	RSScore float64 `json:"rs_score"`
	Metrics Metrics `json:"metrics"`
}

// ScreeningResult is the ranked candidate list for (date, rule set).
// Ephemeral: rebuilt per run, not an append-only log. Excluded carries the
// tickers dropped from the run (stale provider data, rejected series) so the
// failure is user-visible rather than silently absorbed.
type ScreeningResult struct {
	Date      time.Time         `json:"date"`
	RuleSetID string            `json:"rule_set_id"`
	Matches   []ScreeningMatch  `json:"matches"`
	Excluded  map[string]string `json:"excluded"` // symbol -> reason
}
