package contracts

import "time"

// Market identifies a listing exchange.
type Market string

const (
	MarketNasdaq Market = "NASDAQ"
	MarketNYSE   Market = "NYSE"
)

// BenchmarkSymbol is the reserved symbol under which the S&P 500 index
// series is stored for report context.
const BenchmarkSymbol = "SPX"

// Day normalizes a timestamp to its UTC calendar date. All date-keyed data
// flows through this so that time.Time values compare with ==.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Ticker identifies one tradable instrument. Delisted tickers are soft
// deleted (flag, never removed) to preserve historical joins.
type Ticker struct {
	Symbol   string `json:"symbol"`
	Market   Market `json:"market"`
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Industry string `json:"industry"`
	IPOYear  int    `json:"ipo_year"` // 0 when unknown
	Delisted bool   `json:"delisted"`

	FundamentalsUpdatedAt time.Time `json:"fundamentals_updated_at"`
	BarsUpdatedAt         time.Time `json:"bars_updated_at"`
}

// DailyBar is one (ticker, date) OHLCV row. AdjClose reflects all splits and
// dividends known as of the row's last write; it is recomputed by replacing
// the full series whenever a new corporate action is discovered, never by
// patching individual cells.
type DailyBar struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`
}

// ActionKind is a corporate action type.
type ActionKind string

const (
	ActionSplit    ActionKind = "SPLIT"
	ActionDividend ActionKind = "DIVIDEND"
)

// CorporateAction is a split or dividend effective on a date. Discovery of
// an action dated after a ticker's stored history triggers the full-series
// reload path.
type CorporateAction struct {
	Symbol string     `json:"symbol"`
	Date   time.Time  `json:"date"`
	Kind   ActionKind `json:"kind"`
	// Value is the split ratio (e.g. 2 for a 2:1 split) or the dividend
	// amount per share.
	Value float64 `json:"value"`
}

// FundamentalsRecord is one periodic fundamentals row for a ticker.
type FundamentalsRecord struct {
	Symbol      string    `json:"symbol"`
	ReportDate  time.Time `json:"report_date"`
	Period      string    `json:"period"` // ANNUAL or QUARTERLY
	Revenue     float64   `json:"revenue"`
	NetIncome   float64   `json:"net_income"`
	EPS         float64   `json:"eps"`
	GrossMargin float64   `json:"gross_margin"`
}
