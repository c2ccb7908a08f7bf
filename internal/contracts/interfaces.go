package contracts

import (
	"context"
	"time"
)

// TradingCalendar is the canonical ordered set of valid trading dates.
// Every window in the system is measured in trading days through it, never
// in calendar days.
type TradingCalendar interface {
	IsTradingDay(date time.Time) bool
	TradingDaysBetween(start, end time.Time) ([]time.Time, error)
	NthPriorTradingDay(date time.Time, n int) (time.Time, error)
	LastSession() (time.Time, bool)
}

// UniverseProvider discovers listed tickers. External collaborator; the core
// only consumes the result.
type UniverseProvider interface {
	ListUniverse(ctx context.Context, market Market) ([]Ticker, error)
}

// PriceProvider fetches daily bars and corporate actions.
type PriceProvider interface {
	GetDailyBars(ctx context.Context, symbol string, from, to time.Time) ([]DailyBar, error)
	GetCorporateActions(ctx context.Context, symbol string, since time.Time) ([]CorporateAction, error)
}

// FundamentalsProvider fetches periodic fundamentals records.
type FundamentalsProvider interface {
	GetFundamentals(ctx context.Context, symbol string) ([]FundamentalsRecord, error)
}
