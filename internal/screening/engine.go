package screening

import (
	"fmt"
	"sort"
	"time"

	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/pkg/logger"
)

// Candidate is one non-delisted ticker's metric snapshot entering a
// screen. The pipeline assembles the map from rolling metrics, the RS
// score, and the point-in-time fundamentals row.
type Candidate struct {
	Symbol  string
	Metrics contracts.Metrics
}

// Engine evaluates rule sets against candidate snapshots. It holds no
// per-run state; results are ephemeral and rebuilt on every invocation.
type Engine struct {
	logger *logger.Logger
}

func NewEngine(log *logger.Logger) *Engine {
	return &Engine{logger: log}
}

// Run screens every candidate against the rule set and returns matches
// sorted by RS score descending, ties broken by symbol ascending.
// excluded carries tickers already dropped upstream (stale data, rejected
// series) and is passed through onto the result.
func (e *Engine) Run(date time.Time, set RuleSet, candidates []Candidate, excluded map[string]string) (*contracts.ScreeningResult, error) {
	if err := set.Rule.Validate(); err != nil {
		return nil, fmt.Errorf("rule set %q: %w", set.ID, err)
	}

	result := &contracts.ScreeningResult{
		Date:      contracts.Day(date),
		RuleSetID: set.ID,
		Matches:   []contracts.ScreeningMatch{},
		Excluded:  make(map[string]string, len(excluded)),
	}
	for sym, reason := range excluded {
		result.Excluded[sym] = reason
	}

	for _, c := range candidates {
		if !set.Rule.Matches(c.Metrics) {
			continue
		}
		rs, _ := toFloat(c.Metrics[contracts.MetricRSScore])
		result.Matches = append(result.Matches, contracts.ScreeningMatch{
			Symbol:  c.Symbol,
			RSScore: rs,
			Metrics: c.Metrics,
		})
	}

	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].RSScore != result.Matches[j].RSScore {
			return result.Matches[i].RSScore > result.Matches[j].RSScore
		}
		return result.Matches[i].Symbol < result.Matches[j].Symbol
	})

	e.logger.WithFields(map[string]interface{}{
		"rule_set":   set.ID,
		"date":       result.Date.Format("2006-01-02"),
		"candidates": len(candidates),
		"matches":    len(result.Matches),
		"excluded":   len(result.Excluded),
	}).Info("Screen evaluated")

	return result, nil
}
