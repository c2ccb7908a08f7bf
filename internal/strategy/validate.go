package strategy

import (
	"fmt"

	"github.com/uswizard/backend/internal/breadth"
	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/internal/rolling"
	"github.com/uswizard/backend/internal/scoring"
)

// ValidationError stops the program; a strategy file that fails
// validation must never drive a run.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the effective configuration after defaults are applied.
// The engine constructors re-check their own slices; running them here
// surfaces every inconsistency at load time.
func Validate(cfg *Config) error {
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	if _, err := rolling.NewEngine(cfg.RollingConfig()); err != nil {
		return ValidationError{"rolling", err.Error()}
	}
	if _, err := scoring.NewScorer(cfg.ScoringConfig()); err != nil {
		return ValidationError{"scoring", err.Error()}
	}
	if _, err := breadth.NewAggregator(cfg.BreadthConfig()); err != nil {
		return ValidationError{"breadth", err.Error()}
	}

	switch contracts.Market(cfg.Breadth.Market) {
	case contracts.MarketNasdaq, contracts.MarketNYSE:
	default:
		return ValidationError{"breadth.market", fmt.Sprintf("unknown market %q", cfg.Breadth.Market)}
	}

	seen := make(map[string]bool, len(cfg.Screens))
	for i, s := range cfg.Screens {
		if s.ID == "" {
			return ValidationError{fmt.Sprintf("screens[%d].id", i), "required"}
		}
		if seen[s.ID] {
			return ValidationError{fmt.Sprintf("screens[%d].id", i), fmt.Sprintf("duplicate id %q", s.ID)}
		}
		seen[s.ID] = true
		if err := s.Rule.Validate(); err != nil {
			return ValidationError{fmt.Sprintf("screens[%d].rule", i), err.Error()}
		}
	}
	return nil
}
