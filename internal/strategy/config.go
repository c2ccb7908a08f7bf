package strategy

import (
	"github.com/uswizard/backend/internal/breadth"
	"github.com/uswizard/backend/internal/contracts"
	"github.com/uswizard/backend/internal/rolling"
	"github.com/uswizard/backend/internal/scoring"
	"github.com/uswizard/backend/internal/screening"
)

// Config is the quant surface of one strategy file. Everything a
// researcher tunes lives here; code never hard-codes a window, weight, or
// screen. Struct (not map) fields keep the reproducibility hash stable.
type Config struct {
	Meta    Meta                `yaml:"meta" json:"meta"`
	Rolling Rolling             `yaml:"rolling" json:"rolling"`
	Scoring Scoring             `yaml:"scoring" json:"scoring"`
	Breadth Breadth             `yaml:"breadth" json:"breadth"`
	Screens []screening.RuleSet `yaml:"screens" json:"screens"`
}

type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

type Rolling struct {
	MAWindows             []int `yaml:"ma_windows" json:"ma_windows"`
	MomentumLookbacksDays []int `yaml:"momentum_lookbacks_days" json:"momentum_lookbacks_days"`
}

type Scoring struct {
	Weights     []float64 `yaml:"weights" json:"weights"`
	MinUniverse int       `yaml:"min_universe" json:"min_universe"`
}

type Breadth struct {
	Window          int    `yaml:"window" json:"window"`
	Market          string `yaml:"market" json:"market"`
	MaxSymbolLength int    `yaml:"max_symbol_length" json:"max_symbol_length"`
	MinListedYears  int    `yaml:"min_listed_years" json:"min_listed_years"`
}

// applyDefaults fills every unset option with its documented default so a
// minimal strategy file stays valid.
func (c *Config) applyDefaults() {
	if len(c.Rolling.MAWindows) == 0 {
		c.Rolling.MAWindows = rolling.Default().MAWindows
	}
	if len(c.Rolling.MomentumLookbacksDays) == 0 {
		c.Rolling.MomentumLookbacksDays = rolling.Default().MomentumLookbacks
	}
	if len(c.Scoring.Weights) == 0 {
		c.Scoring.Weights = scoring.DefaultConfig().Weights
	}
	if c.Scoring.MinUniverse == 0 {
		c.Scoring.MinUniverse = scoring.DefaultMinUniverse
	}
	def := breadth.DefaultConfig()
	if c.Breadth.Window == 0 {
		c.Breadth.Window = def.Window
	}
	if c.Breadth.Market == "" {
		c.Breadth.Market = string(def.Market)
	}
	if c.Breadth.MaxSymbolLength == 0 {
		c.Breadth.MaxSymbolLength = def.MaxSymbolLength
	}
	if c.Breadth.MinListedYears == 0 {
		c.Breadth.MinListedYears = def.MinListedYears
	}
}

// RollingConfig maps the strategy file onto the rolling engine. The
// breadth window is included so MA200 (or whatever the file pins) is
// always computed alongside the screening averages.
func (c *Config) RollingConfig() rolling.Config {
	windows := make([]int, 0, len(c.Rolling.MAWindows)+1)
	windows = append(windows, c.Rolling.MAWindows...)
	seen := false
	for _, w := range windows {
		if w == c.Breadth.Window {
			seen = true
			break
		}
	}
	if !seen {
		windows = append(windows, c.Breadth.Window)
	}
	return rolling.Config{
		MAWindows:         windows,
		MomentumLookbacks: c.Rolling.MomentumLookbacksDays,
	}
}

func (c *Config) ScoringConfig() scoring.Config {
	return scoring.Config{
		Lookbacks:   c.Rolling.MomentumLookbacksDays,
		Weights:     c.Scoring.Weights,
		MinUniverse: c.Scoring.MinUniverse,
	}
}

func (c *Config) BreadthConfig() breadth.Config {
	return breadth.Config{
		Window:          c.Breadth.Window,
		Market:          contracts.Market(c.Breadth.Market),
		MaxSymbolLength: c.Breadth.MaxSymbolLength,
		MinListedYears:  c.Breadth.MinListedYears,
	}
}

// RuleSet looks a screen up by id.
func (c *Config) RuleSet(id string) (screening.RuleSet, bool) {
	for _, s := range c.Screens {
		if s.ID == id {
			return s, true
		}
	}
	return screening.RuleSet{}, false
}
