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

// TickerRepository implements contracts.TickerRepository.
type TickerRepository struct {
	pool *pgxpool.Pool
}

// NewTickerRepository creates a new ticker repository.
func NewTickerRepository(pool *pgxpool.Pool) *TickerRepository {
	return &TickerRepository{pool: pool}
}

const tickerColumns = "symbol, market, name, sector, industry, ipo_year, delisted, fundamentals_updated_at, bars_updated_at"

// GetBySymbol retrieves one ticker.
func (r *TickerRepository) GetBySymbol(ctx context.Context, symbol string) (*contracts.Ticker, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickers WHERE symbol = $1`, tickerColumns)

	var t contracts.Ticker
	err := r.pool.QueryRow(ctx, query, symbol).Scan(
		&t.Symbol, &t.Market, &t.Name, &t.Sector, &t.Industry,
		&t.IPOYear, &t.Delisted, &t.FundamentalsUpdatedAt, &t.BarsUpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contracts.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// GetActive retrieves all non-delisted tickers ordered by symbol.
func (r *TickerRepository) GetActive(ctx context.Context) ([]contracts.Ticker, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tickers
		WHERE delisted = FALSE
		ORDER BY symbol ASC
	`, tickerColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTickers(rows)
}

// GetByMarket retrieves tickers for one exchange.
func (r *TickerRepository) GetByMarket(ctx context.Context, market contracts.Market, includeDelisted bool) ([]contracts.Ticker, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM tickers
		WHERE market = $1 AND (delisted = FALSE OR $2)
		ORDER BY symbol ASC
	`, tickerColumns)

	rows, err := r.pool.Query(ctx, query, market, includeDelisted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTickers(rows)
}

// Upsert inserts or updates a ticker. Unique per (symbol, market);
// rediscovery never clears the delisted flag implicitly.
func (r *TickerRepository) Upsert(ctx context.Context, ticker *contracts.Ticker) error {
	query := `
		INSERT INTO tickers (symbol, market, name, sector, industry, ipo_year, delisted, fundamentals_updated_at, bars_updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (symbol, market) DO UPDATE SET
			name = EXCLUDED.name,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry,
			ipo_year = EXCLUDED.ipo_year
	`

	_, err := r.pool.Exec(ctx, query,
		ticker.Symbol, ticker.Market, ticker.Name, ticker.Sector, ticker.Industry,
		ticker.IPOYear, ticker.Delisted, ticker.FundamentalsUpdatedAt, ticker.BarsUpdatedAt,
	)
	return err
}

// MarkDelisted soft-deletes a ticker. History is preserved for joins.
func (r *TickerRepository) MarkDelisted(ctx context.Context, symbol string) error {
	_, err := r.pool.Exec(ctx, `UPDATE tickers SET delisted = TRUE WHERE symbol = $1`, symbol)
	return err
}

// TouchBarsUpdated stamps the last successful bar sync.
func (r *TickerRepository) TouchBarsUpdated(ctx context.Context, symbol string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE tickers SET bars_updated_at = $2 WHERE symbol = $1`, symbol, at)
	return err
}

func scanTickers(rows pgx.Rows) ([]contracts.Ticker, error) {
	var tickers []contracts.Ticker
	for rows.Next() {
		var t contracts.Ticker
		if err := rows.Scan(
			&t.Symbol, &t.Market, &t.Name, &t.Sector, &t.Industry,
			&t.IPOYear, &t.Delisted, &t.FundamentalsUpdatedAt, &t.BarsUpdatedAt,
		); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}
	return tickers, rows.Err()
}
