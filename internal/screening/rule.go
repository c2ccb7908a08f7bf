package screening

import (
	"fmt"

	"github.com/uswizard/backend/internal/contracts"
)

// Comparison operators a leaf may carry. eq and neq also accept strings;
// the ordering operators are numeric only.
const (
	OpGT  = "gt"
	OpGTE = "gte"
	OpLT  = "lt"
	OpLTE = "lte"
	OpEQ  = "eq"
	OpNEQ = "neq"
)

// Rule is one node of a screening expression tree. Exactly one variant is
// populated: `all` (conjunction), `any` (disjunction), or a leaf
// comparison {metric, op, value}. Rules are data loaded from the strategy
// file; adding a screen never touches this package.
type Rule struct {
	All []Rule `yaml:"all,omitempty" json:"all,omitempty"`
	Any []Rule `yaml:"any,omitempty" json:"any,omitempty"`

	Metric string      `yaml:"metric,omitempty" json:"metric,omitempty"`
	Op     string      `yaml:"op,omitempty" json:"op,omitempty"`
	Value  interface{} `yaml:"value,omitempty" json:"value,omitempty"`
}

// RuleSet is a named, persisted screen definition.
type RuleSet struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Rule Rule   `yaml:"rule" json:"rule"`
}

// Validate rejects malformed trees up front so evaluation over thousands
// of tickers never hits a structural error.
func (r Rule) Validate() error {
	variants := 0
	if len(r.All) > 0 {
		variants++
	}
	if len(r.Any) > 0 {
		variants++
	}
	if r.Metric != "" {
		variants++
	}
	if variants != 1 {
		return fmt.Errorf("rule must be exactly one of all/any/leaf, got %d variants", variants)
	}

	for _, child := range r.All {
		if err := child.Validate(); err != nil {
			return err
		}
	}
	for _, child := range r.Any {
		if err := child.Validate(); err != nil {
			return err
		}
	}

	if r.Metric != "" {
		switch r.Op {
		case OpGT, OpGTE, OpLT, OpLTE:
			if _, ok := toFloat(r.Value); !ok {
				return fmt.Errorf("metric %q: op %s needs a numeric value, got %T", r.Metric, r.Op, r.Value)
			}
		case OpEQ, OpNEQ:
			if r.Value == nil {
				return fmt.Errorf("metric %q: op %s needs a value", r.Metric, r.Op)
			}
		default:
			return fmt.Errorf("metric %q: unknown op %q", r.Metric, r.Op)
		}
	}
	return nil
}

// Matches evaluates the tree against one ticker's metric map. A leaf
// referencing an undefined metric is false; the tree itself is assumed
// Validated.
func (r Rule) Matches(metrics contracts.Metrics) bool {
	switch {
	case len(r.All) > 0:
		for _, child := range r.All {
			if !child.Matches(metrics) {
				return false
			}
		}
		return true
	case len(r.Any) > 0:
		for _, child := range r.Any {
			if child.Matches(metrics) {
				return true
			}
		}
		return false
	default:
		return r.matchLeaf(metrics)
	}
}

func (r Rule) matchLeaf(metrics contracts.Metrics) bool {
	actual, ok := metrics[r.Metric]
	if !ok {
		return false
	}

	if an, ok := toFloat(actual); ok {
		en, ok := toFloat(r.Value)
		if !ok {
			return false
		}
		switch r.Op {
		case OpGT:
			return an > en
		case OpGTE:
			return an >= en
		case OpLT:
			return an < en
		case OpLTE:
			return an <= en
		case OpEQ:
			return an == en
		case OpNEQ:
			return an != en
		}
		return false
	}

	as, ok := actual.(string)
	if !ok {
		return false
	}
	es, ok := r.Value.(string)
	if !ok {
		return false
	}
	switch r.Op {
	case OpEQ:
		return as == es
	case OpNEQ:
		return as != es
	}
	return false
}

// toFloat widens the numeric types YAML and JSON decoding produce.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
