package screening

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

// ReportRepository stores screening results as dated report rows, one
// JSON payload per (date, rule set). A rerun for the same date replaces
// the row.
type ReportRepository struct {
	pool *pgxpool.Pool
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

func (r *ReportRepository) Get(ctx context.Context, date time.Time, ruleSetID string) (*contracts.ScreeningResult, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `
		SELECT payload FROM reports
		WHERE report_date = $1 AND rule_set_id = $2`,
		contracts.Day(date), ruleSetID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("report %s/%s: %w", date.Format("2006-01-02"), ruleSetID, contracts.ErrNotFound)
		}
		return nil, fmt.Errorf("query report: %w", err)
	}

	var result contracts.ScreeningResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal report payload: %w", err)
	}
	result.Date = contracts.Day(result.Date)
	return &result, nil
}

func (r *ReportRepository) Save(ctx context.Context, result *contracts.ScreeningResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal report payload: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO reports (report_date, rule_set_id, payload)
		VALUES ($1, $2, $3)
		ON CONFLICT (report_date, rule_set_id)
		DO UPDATE SET payload = EXCLUDED.payload`,
		contracts.Day(result.Date), result.RuleSetID, payload)
	if err != nil {
		return fmt.Errorf("save report %s: %w", result.RuleSetID, err)
	}
	return nil
}
