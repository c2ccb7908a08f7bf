package breadth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uswizard/backend/internal/contracts"
)

// Repository persists breadth values, unique per (universe, date).
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, universe string, date time.Time) (*contracts.BreadthValue, error) {
	var v contracts.BreadthValue
	err := r.pool.QueryRow(ctx, `
		SELECT universe, breadth_date, value, above_count, defined_count
		FROM breadth_values
		WHERE universe = $1 AND breadth_date = $2`,
		universe, contracts.Day(date)).
		Scan(&v.Universe, &v.Date, &v.Value, &v.Above, &v.Defined)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("breadth %s %s: %w", universe, date.Format("2006-01-02"), contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("query breadth: %w", err)
	}
	v.Date = contracts.Day(v.Date)
	return &v, nil
}

func (r *Repository) GetRecent(ctx context.Context, universe string, limit int) ([]contracts.BreadthValue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT universe, breadth_date, value, above_count, defined_count
		FROM breadth_values
		WHERE universe = $1
		ORDER BY breadth_date DESC
		LIMIT $2`, universe, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent breadth: %w", err)
	}
	defer rows.Close()

	var values []contracts.BreadthValue
	for rows.Next() {
		var v contracts.BreadthValue
		if err := rows.Scan(&v.Universe, &v.Date, &v.Value, &v.Above, &v.Defined); err != nil {
			return nil, fmt.Errorf("scan breadth row: %w", err)
		}
		v.Date = contracts.Day(v.Date)
		values = append(values, v)
	}
	return values, rows.Err()
}

func (r *Repository) Save(ctx context.Context, value *contracts.BreadthValue) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO breadth_values (universe, breadth_date, value, above_count, defined_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (universe, breadth_date)
		DO UPDATE SET value = EXCLUDED.value,
		              above_count = EXCLUDED.above_count,
		              defined_count = EXCLUDED.defined_count`,
		value.Universe, contracts.Day(value.Date), value.Value, value.Above, value.Defined)
	if err != nil {
		return fmt.Errorf("save breadth %s: %w", value.Universe, err)
	}
	return nil
}
