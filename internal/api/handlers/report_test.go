package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uswizard/backend/internal/calendar"
	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/pkg/config"
	"github.com/uswizard/backend/pkg/logger"
	"github.com/uswizard/backend/pkg/redis"
)

var apiDay = time.Date(2024, 7, 5, 0, 0, 0, 0, time.UTC)

type stubReportRepo struct{ result *contracts.ScreeningResult }

func (s *stubReportRepo) Get(_ context.Context, date time.Time, ruleSetID string) (*contracts.ScreeningResult, error) {
	if s.result != nil && s.result.Date.Equal(date) && s.result.RuleSetID == ruleSetID {
		return s.result, nil
	}
	return nil, contracts.ErrNotFound
}
func (s *stubReportRepo) Save(context.Context, *contracts.ScreeningResult) error { return nil }

type stubBreadthRepo struct{ values []contracts.BreadthValue }

func (s *stubBreadthRepo) Get(context.Context, string, time.Time) (*contracts.BreadthValue, error) {
	return nil, contracts.ErrNotFound
}
func (s *stubBreadthRepo) GetRecent(_ context.Context, _ string, limit int) ([]contracts.BreadthValue, error) {
	if limit > len(s.values) {
		limit = len(s.values)
	}
	return s.values[:limit], nil
}
func (s *stubBreadthRepo) Save(context.Context, *contracts.BreadthValue) error { return nil }

type stubRSRepo struct{ scores []contracts.RSScore }

func (s *stubRSRepo) GetByDate(_ context.Context, date time.Time) ([]contracts.RSScore, error) {
	if date.Equal(apiDay) {
		return s.scores, nil
	}
	return nil, nil
}
func (s *stubRSRepo) GetDatesWithScores(context.Context) ([]time.Time, error) { return nil, nil }
func (s *stubRSRepo) SaveBatch(context.Context, []contracts.RSScore) error    { return nil }

func newTestHandler(t *testing.T) *ReportHandler {
	t.Helper()

	cal := calendar.New([]time.Time{apiDay.AddDate(0, 0, -1), apiDay})

	client, err := redis.New(&config.Config{}) // disabled: no-op cache
	require.NoError(t, err)

	return NewReportHandler(
		cal,
		&stubReportRepo{result: &contracts.ScreeningResult{
			Date:      apiDay,
			RuleSetID: "rs_leaders",
			Matches:   []contracts.ScreeningMatch{{Symbol: "NVDA", RSScore: 98}},
			Excluded:  map[string]string{},
		}},
		&stubBreadthRepo{values: []contracts.BreadthValue{
			{Universe: "NAA200R", Date: apiDay, Value: 61.5, Above: 1230, Defined: 2000},
		}},
		&stubRSRepo{scores: []contracts.RSScore{{Symbol: "NVDA", Date: apiDay, Score: 98}}},
		redis.NewCache(client, "uswizard"),
		logger.NewNop(),
	)
}

func TestGetReport(t *testing.T) {
	h := newTestHandler(t)

	t.Run("defaults to last session", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.GetReport(w, httptest.NewRequest("GET", "/api/report?rule_set=rs_leaders", nil))
		require.Equal(t, 200, w.Code)

		var got contracts.ScreeningResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "rs_leaders", got.RuleSetID)
		require.Len(t, got.Matches, 1)
		assert.Equal(t, "NVDA", got.Matches[0].Symbol)
	})

	t.Run("missing rule_set", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.GetReport(w, httptest.NewRequest("GET", "/api/report", nil))
		assert.Equal(t, 400, w.Code)
	})

	t.Run("unknown date", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.GetReport(w, httptest.NewRequest("GET", "/api/report?rule_set=rs_leaders&date=2020-01-02", nil))
		assert.Equal(t, 404, w.Code)
	})

	t.Run("malformed date", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.GetReport(w, httptest.NewRequest("GET", "/api/report?rule_set=rs_leaders&date=07/05/2024", nil))
		assert.Equal(t, 400, w.Code)
	})
}

func TestGetBreadth(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.GetBreadth(w, httptest.NewRequest("GET", "/api/breadth?limit=30", nil))
	require.Equal(t, 200, w.Code)

	var got []contracts.BreadthValue
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.InDelta(t, 61.5, got[0].Value, 1e-9)

	w = httptest.NewRecorder()
	h.GetBreadth(w, httptest.NewRequest("GET", "/api/breadth?limit=0", nil))
	assert.Equal(t, 400, w.Code)
}

func TestGetRS(t *testing.T) {
	h := newTestHandler(t)

	w := httptest.NewRecorder()
	h.GetRS(w, httptest.NewRequest("GET", "/api/rs?date=2024-07-05", nil))
	require.Equal(t, 200, w.Code)

	var got []contracts.RSScore
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, 98.0, got[0].Score)

	w = httptest.NewRecorder()
	h.GetRS(w, httptest.NewRequest("GET", "/api/rs?date=2024-07-04", nil))
	assert.Equal(t, 404, w.Code)
}
