package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/uswizard/backend/internal/breadth"
	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/pkg/logger"
	"github.com/uswizard/backend/pkg/redis"
)

const cacheTTL = 10 * time.Minute

// ReportHandler serves the batch's stored outputs: screening reports,
// breadth history, and per-date RS scores. Latest-date reads go through
// the cache; explicit-date reads hit the repositories directly.
type ReportHandler struct {
	calendar    contracts.TradingCalendar
	reportRepo  contracts.ReportRepository
	breadthRepo contracts.BreadthRepository
	rsRepo      contracts.RSRepository
	cache       *redis.Cache
	logger      *logger.Logger
}

func NewReportHandler(
	cal contracts.TradingCalendar,
	reportRepo contracts.ReportRepository,
	breadthRepo contracts.BreadthRepository,
	rsRepo contracts.RSRepository,
	cache *redis.Cache,
	log *logger.Logger,
) *ReportHandler {
	return &ReportHandler{
		calendar:    cal,
		reportRepo:  reportRepo,
		breadthRepo: breadthRepo,
		rsRepo:      rsRepo,
		cache:       cache,
		logger:      log,
	}
}

// resolveDate parses ?date=YYYY-MM-DD, defaulting to the last known
// session. The bool reports whether the default was used, which decides
// cacheability.
func (h *ReportHandler) resolveDate(r *http.Request) (time.Time, bool, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		last, ok := h.calendar.LastSession()
		if !ok {
			return time.Time{}, false, fmt.Errorf("trading calendar is empty")
		}
		return last, true, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return contracts.Day(d), false, nil
}

// GetReport serves one screening report:
// GET /api/report?rule_set=stage2_template&date=2024-07-05
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ruleSetID := r.URL.Query().Get("rule_set")
	if ruleSetID == "" {
		writeError(w, http.StatusBadRequest, "rule_set parameter is required")
		return
	}
	date, isLatest, err := h.resolveDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cacheKey := "report:latest:" + ruleSetID
	if isLatest {
		var cached contracts.ScreeningResult
		if hit, err := h.cache.Get(r.Context(), cacheKey, &cached); err == nil && hit {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	result, err := h.reportRepo.Get(r.Context(), date, ruleSetID)
	if err != nil {
		if errors.Is(err, contracts.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no report for that date and rule set")
			return
		}
		h.logger.WithError(err).Error("Report lookup failed")
		writeError(w, http.StatusInternalServerError, "report lookup failed")
		return
	}

	if isLatest {
		if err := h.cache.Set(r.Context(), cacheKey, result, cacheTTL); err != nil {
			h.logger.WithError(err).Warn("Report cache write failed")
		}
	}
	writeJSON(w, http.StatusOK, result)
}

// GetBreadth serves recent breadth values:
// GET /api/breadth?limit=90
func (h *ReportHandler) GetBreadth(w http.ResponseWriter, r *http.Request) {
	limit := 90
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 2000 {
			writeError(w, http.StatusBadRequest, "limit must be in [1, 2000]")
			return
		}
		limit = n
	}

	cacheKey := fmt.Sprintf("breadth:recent:%d", limit)
	var cached []contracts.BreadthValue
	if hit, err := h.cache.Get(r.Context(), cacheKey, &cached); err == nil && hit {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	values, err := h.breadthRepo.GetRecent(r.Context(), breadth.UniverseNAA200R, limit)
	if err != nil {
		h.logger.WithError(err).Error("Breadth lookup failed")
		writeError(w, http.StatusInternalServerError, "breadth lookup failed")
		return
	}

	if err := h.cache.Set(r.Context(), cacheKey, values, cacheTTL); err != nil {
		h.logger.WithError(err).Warn("Breadth cache write failed")
	}
	writeJSON(w, http.StatusOK, values)
}

// GetRS serves one date's full ranking:
// GET /api/rs?date=2024-07-05
func (h *ReportHandler) GetRS(w http.ResponseWriter, r *http.Request) {
	date, _, err := h.resolveDate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scores, err := h.rsRepo.GetByDate(r.Context(), date)
	if err != nil {
		h.logger.WithError(err).Error("RS lookup failed")
		writeError(w, http.StatusInternalServerError, "rs lookup failed")
		return
	}
	if len(scores) == 0 {
		writeError(w, http.StatusNotFound, "no scores for that date")
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
