package contracts

import (
	"context"
	"time"
)

// Repositories the core reads and writes through. Any storage engine
// satisfying the uniqueness and ordered-range-query guarantees suffices;
// no SQL dialect detail is part of these contracts.

// CalendarRepository stores trading sessions. Unique per date.
type CalendarRepository interface {
	GetAll(ctx context.Context) ([]time.Time, error)
	SaveBatch(ctx context.Context, dates []time.Time) error
}

// TickerRepository stores ticker metadata. Unique per (symbol, market);
// delisting is a soft delete.
type TickerRepository interface {
	GetBySymbol(ctx context.Context, symbol string) (*Ticker, error)
	GetActive(ctx context.Context) ([]Ticker, error)
	GetByMarket(ctx context.Context, market Market, includeDelisted bool) ([]Ticker, error)
	Upsert(ctx context.Context, ticker *Ticker) error
	MarkDelisted(ctx context.Context, symbol string) error
	TouchBarsUpdated(ctx context.Context, symbol string, at time.Time) error
}

// PriceRepository stores daily bars. Unique per (symbol, date), range
// queries ordered by date ascending.
type PriceRepository interface {
	GetSeries(ctx context.Context, symbol string) ([]DailyBar, error)
	GetRange(ctx context.Context, symbol string, from, to time.Time) ([]DailyBar, error)
	LastDate(ctx context.Context, symbol string) (time.Time, error)
	SaveBatch(ctx context.Context, bars []DailyBar) error
	// ReplaceSeries deletes the full stored series and reinserts bars in a
	// single transaction. This is the only mutation path for retroactive
	// corporate-action adjustment.
	ReplaceSeries(ctx context.Context, symbol string, bars []DailyBar) error
}

// FundamentalsRepository stores periodic fundamentals rows.
type FundamentalsRepository interface {
	GetLatest(ctx context.Context, symbol string, asOf time.Time) (*FundamentalsRecord, error)
	SaveBatch(ctx context.Context, records []FundamentalsRecord) error
}

// MetricRepository stores derived rolling metrics. Never hand-edited;
// recomputable from DailyBar.
type MetricRepository interface {
	GetByDate(ctx context.Context, date time.Time) ([]RollingMetric, error)
	GetLatest(ctx context.Context, symbol string) (*RollingMetric, error)
	ReplaceForSymbol(ctx context.Context, symbol string, metrics []RollingMetric) error
}

// RSRepository stores RS scores. Unique per (symbol, date).
type RSRepository interface {
	GetByDate(ctx context.Context, date time.Time) ([]RSScore, error)
	GetDatesWithScores(ctx context.Context) ([]time.Time, error)
	SaveBatch(ctx context.Context, scores []RSScore) error
}

// BreadthRepository stores breadth values. Unique per (universe, date).
type BreadthRepository interface {
	Get(ctx context.Context, universe string, date time.Time) (*BreadthValue, error)
	GetRecent(ctx context.Context, universe string, limit int) ([]BreadthValue, error)
	Save(ctx context.Context, value *BreadthValue) error
}

// ReportRepository stores screening results as dated report rows.
type ReportRepository interface {
	Get(ctx context.Context, date time.Time, ruleSetID string) (*ScreeningResult, error)
	Save(ctx context.Context, result *ScreeningResult) error
}
