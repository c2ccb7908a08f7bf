package rolling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uswizard/backend/internal/contracts"
)

// MetricRepository persists computed rolling metrics. Rows are derived
// data: the only writer is ReplaceForSymbol, so a ticker's stored metrics
// always reflect one consistent computation over its full series.
type MetricRepository struct {
	pool *pgxpool.Pool
}

func NewMetricRepository(pool *pgxpool.Pool) *MetricRepository {
	return &MetricRepository{pool: pool}
}

const metricColumns = "symbol, metric_date, adj_close, volume, ma, momentum"

func (r *MetricRepository) GetByDate(ctx context.Context, date time.Time) ([]contracts.RollingMetric, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM rolling_metrics
		WHERE metric_date = $1
		ORDER BY symbol`, metricColumns)

	rows, err := r.pool.Query(ctx, query, contracts.Day(date))
	if err != nil {
		return nil, fmt.Errorf("query metrics by date: %w", err)
	}
	defer rows.Close()

	return scanMetrics(rows)
}

func (r *MetricRepository) GetLatest(ctx context.Context, symbol string) (*contracts.RollingMetric, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM rolling_metrics
		WHERE symbol = $1
		ORDER BY metric_date DESC
		LIMIT 1`, metricColumns)

	m, err := scanMetric(r.pool.QueryRow(ctx, query, symbol))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("metrics for %s: %w", symbol, contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("query latest metric: %w", err)
	}
	return m, nil
}

func (r *MetricRepository) ReplaceForSymbol(ctx context.Context, symbol string, metrics []contracts.RollingMetric) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin metric replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rolling_metrics WHERE symbol = $1`, symbol); err != nil {
		return fmt.Errorf("delete metrics for %s: %w", symbol, err)
	}

	batch := &pgx.Batch{}
	for _, m := range metrics {
		ma, err := json.Marshal(m.MA)
		if err != nil {
			return fmt.Errorf("marshal ma for %s: %w", symbol, err)
		}
		momentum, err := json.Marshal(m.Momentum)
		if err != nil {
			return fmt.Errorf("marshal momentum for %s: %w", symbol, err)
		}
		batch.Queue(fmt.Sprintf(`
			INSERT INTO rolling_metrics (%s)
			VALUES ($1, $2, $3, $4, $5, $6)`, metricColumns),
			m.Symbol, contracts.Day(m.Date), m.AdjClose, m.Volume, ma, momentum)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert metrics for %s: %w", symbol, err)
	}

	return tx.Commit(ctx)
}

func scanMetrics(rows pgx.Rows) ([]contracts.RollingMetric, error) {
	var metrics []contracts.RollingMetric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		metrics = append(metrics, *m)
	}
	return metrics, rows.Err()
}

func scanMetric(row pgx.Row) (*contracts.RollingMetric, error) {
	var (
		m            contracts.RollingMetric
		ma, momentum []byte
	)
	if err := row.Scan(&m.Symbol, &m.Date, &m.AdjClose, &m.Volume, &ma, &momentum); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ma, &m.MA); err != nil {
		return nil, fmt.Errorf("unmarshal ma: %w", err)
	}
	if err := json.Unmarshal(momentum, &m.Momentum); err != nil {
		return nil, fmt.Errorf("unmarshal momentum: %w", err)
	}
	m.Date = contracts.Day(m.Date)
	return &m, nil
}
