package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uswizard/backend/internal/contracts"
)

// PriceRepository implements contracts.PriceRepository.
// SSOT: daily bar storage access lives here only.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository.
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

const barColumns = "symbol, bar_date, open_price, high_price, low_price, close_price, adj_close, volume"

// GetSeries retrieves a ticker's full bar history in date order.
func (r *PriceRepository) GetSeries(ctx context.Context, symbol string) ([]contracts.DailyBar, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM daily_bars
		WHERE symbol = $1
		ORDER BY bar_date ASC
	`, barColumns)

	rows, err := r.pool.Query(ctx, query, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetRange retrieves bars within [from, to] in date order.
func (r *PriceRepository) GetRange(ctx context.Context, symbol string, from, to time.Time) ([]contracts.DailyBar, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM daily_bars
		WHERE symbol = $1 AND bar_date BETWEEN $2 AND $3
		ORDER BY bar_date ASC
	`, barColumns)

	rows, err := r.pool.Query(ctx, query, symbol, contracts.Day(from), contracts.Day(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanBars(rows)
}

// LastDate returns the most recent stored bar date for a symbol.
func (r *PriceRepository) LastDate(ctx context.Context, symbol string) (time.Time, error) {
	query := `
		SELECT bar_date
		FROM daily_bars
		WHERE symbol = $1
		ORDER BY bar_date DESC
		LIMIT 1
	`

	var d time.Time
	err := r.pool.QueryRow(ctx, query, symbol).Scan(&d)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, contracts.ErrNotFound
		}
		return time.Time{}, err
	}
	return contracts.Day(d), nil
}

// SaveBatch upserts bars. Unique per (symbol, date).
func (r *PriceRepository) SaveBatch(ctx context.Context, bars []contracts.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	query := `
		INSERT INTO daily_bars (symbol, bar_date, open_price, high_price, low_price, close_price, adj_close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, bar_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			adj_close = EXCLUDED.adj_close,
			volume = EXCLUDED.volume
	`

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(query, b.Symbol, contracts.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range bars {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("save bars: %w", err)
		}
	}
	return nil
}

// ReplaceSeries deletes the stored series and reinserts bars in a single
// transaction. Retroactive adjustment is always a full replace; readers see
// either the old series or the new one, never a mix.
func (r *PriceRepository) ReplaceSeries(ctx context.Context, symbol string, bars []contracts.DailyBar) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM daily_bars WHERE symbol = $1`, symbol); err != nil {
		return fmt.Errorf("delete series: %w", err)
	}

	insert := `
		INSERT INTO daily_bars (symbol, bar_date, open_price, high_price, low_price, close_price, adj_close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, b := range bars {
		if _, err := tx.Exec(ctx, insert,
			symbol, contracts.Day(b.Date), b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume,
		); err != nil {
			return fmt.Errorf("insert bar: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func scanBars(rows pgx.Rows) ([]contracts.DailyBar, error) {
	var bars []contracts.DailyBar
	for rows.Next() {
		var b contracts.DailyBar
		if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume); err != nil {
			return nil, err
		}
		b.Date = contracts.Day(b.Date)
		bars = append(bars, b)
	}
	return bars, rows.Err()
}
