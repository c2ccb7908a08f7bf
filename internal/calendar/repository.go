package calendar

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uswizard/backend/internal/contracts"
)

// Repository implements contracts.CalendarRepository over PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new calendar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetAll retrieves all known trading sessions in ascending order.
func (r *Repository) GetAll(ctx context.Context) ([]time.Time, error) {
	query := `
		SELECT session_date
		FROM trading_calendar
		ORDER BY session_date ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, contracts.Day(d))
	}
	return dates, rows.Err()
}

// SaveBatch inserts sessions, ignoring dates already present.
func (r *Repository) SaveBatch(ctx context.Context, dates []time.Time) error {
	query := `
		INSERT INTO trading_calendar (session_date)
		VALUES ($1)
		ON CONFLICT (session_date) DO NOTHING
	`

	for _, d := range dates {
		if _, err := r.pool.Exec(ctx, query, contracts.Day(d)); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the full calendar table and builds the in-memory index.
func Load(ctx context.Context, repo contracts.CalendarRepository) (*Calendar, error) {
	dates, err := repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return New(dates), nil
}
