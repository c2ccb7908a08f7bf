package marketdata

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uswizard/backend/internal/contracts"
)

// FundamentalsRepository implements contracts.FundamentalsRepository.
type FundamentalsRepository struct {
	pool *pgxpool.Pool
}

// NewFundamentalsRepository creates a new fundamentals repository.
func NewFundamentalsRepository(pool *pgxpool.Pool) *FundamentalsRepository {
	return &FundamentalsRepository{pool: pool}
}

// GetLatest retrieves the most recent fundamentals record reported on or
// before asOf. Point-in-time: later reports never leak into earlier dates.
func (r *FundamentalsRepository) GetLatest(ctx context.Context, symbol string, asOf time.Time) (*contracts.FundamentalsRecord, error) {
	query := `
		SELECT symbol, report_date, period, revenue, net_income, eps, gross_margin
		FROM fundamentals
		WHERE symbol = $1 AND report_date <= $2
		ORDER BY report_date DESC
		LIMIT 1
	`

	var f contracts.FundamentalsRecord
	err := r.pool.QueryRow(ctx, query, symbol, contracts.Day(asOf)).Scan(
		&f.Symbol, &f.ReportDate, &f.Period, &f.Revenue, &f.NetIncome, &f.EPS, &f.GrossMargin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contracts.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// SaveBatch upserts fundamentals rows. Unique per (symbol, report_date, period).
func (r *FundamentalsRepository) SaveBatch(ctx context.Context, records []contracts.FundamentalsRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO fundamentals (symbol, report_date, period, revenue, net_income, eps, gross_margin)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, report_date, period) DO UPDATE SET
			revenue = EXCLUDED.revenue,
			net_income = EXCLUDED.net_income,
			eps = EXCLUDED.eps,
			gross_margin = EXCLUDED.gross_margin
	`

	batch := &pgx.Batch{}
	for _, f := range records {
		batch.Queue(query, f.Symbol, contracts.Day(f.ReportDate), f.Period, f.Revenue, f.NetIncome, f.EPS, f.GrossMargin)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
