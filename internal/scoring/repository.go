package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uswizard/backend/internal/contracts"
)

// RSRepository persists per-date RS scores, unique per (symbol, date).
type RSRepository struct {
	pool *pgxpool.Pool
}

func NewRSRepository(pool *pgxpool.Pool) *RSRepository {
	return &RSRepository{pool: pool}
}

func (r *RSRepository) GetByDate(ctx context.Context, date time.Time) ([]contracts.RSScore, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT symbol, score_date, score, composite, horizons
		FROM rs_scores
		WHERE score_date = $1
		ORDER BY score DESC, symbol`, contracts.Day(date))
	if err != nil {
		return nil, fmt.Errorf("query rs scores: %w", err)
	}
	defer rows.Close()

	var scores []contracts.RSScore
	for rows.Next() {
		var (
			s        contracts.RSScore
			horizons []byte
		)
		if err := rows.Scan(&s.Symbol, &s.Date, &s.Score, &s.Composite, &horizons); err != nil {
			return nil, fmt.Errorf("scan rs score: %w", err)
		}
		if err := json.Unmarshal(horizons, &s.Horizons); err != nil {
			return nil, fmt.Errorf("unmarshal horizons: %w", err)
		}
		s.Date = contracts.Day(s.Date)
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// GetDatesWithScores lists every date that already holds at least one
// score, ascending. The backfill command diffs this against the calendar.
func (r *RSRepository) GetDatesWithScores(ctx context.Context) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT score_date FROM rs_scores ORDER BY score_date`)
	if err != nil {
		return nil, fmt.Errorf("query scored dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan scored date: %w", err)
		}
		dates = append(dates, contracts.Day(d))
	}
	return dates, rows.Err()
}

func (r *RSRepository) SaveBatch(ctx context.Context, scores []contracts.RSScore) error {
	if len(scores) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, s := range scores {
		horizons, err := json.Marshal(s.Horizons)
		if err != nil {
			return fmt.Errorf("marshal horizons for %s: %w", s.Symbol, err)
		}
		batch.Queue(`
			INSERT INTO rs_scores (symbol, score_date, score, composite, horizons)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (symbol, score_date)
			DO UPDATE SET score = EXCLUDED.score,
			              composite = EXCLUDED.composite,
			              horizons = EXCLUDED.horizons`,
			s.Symbol, contracts.Day(s.Date), s.Score, s.Composite, horizons)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save rs scores: %w", err)
	}
	return nil
}
