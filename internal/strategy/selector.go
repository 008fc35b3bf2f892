package strategy

import (
	"sort"

	"github.com/jonathan/essay-refiner/internal/diagnosis"
	"github.com/jonathan/essay-refiner/internal/types"
)

// DefaultRegressionMargin is the composite drop, in points, beyond which an
// outcome counts as a regression.
const DefaultRegressionMargin = 5

// Outcome is a strategy's state within one run.
type Outcome string

const (
	NotTried  Outcome = "not_tried"
	Applied   Outcome = "applied"
	Improved  Outcome = "improved"
	NoChange  Outcome = "no_change"
	Regressed Outcome = "regressed"
)

// ClassifyOutcome compares the composite of the text a strategy was applied to
// with the composite of the result.
func ClassifyOutcome(before, after, margin int) Outcome {
	delta := after - before
	switch {
	case delta > 0:
		return Improved
	case delta < -margin:
		return Regressed
	default:
		return NoChange
	}
}

// Selector tracks strategy outcomes and disabled risk tiers for a single run.
// It is not safe for concurrent use; each run owns its own selector.
type Selector struct {
	library       *Library
	margin        int
	states        map[types.StrategyID]Outcome
	disabledTiers map[types.RiskTier]bool
}

// NewSelector creates a selector over library. A negative margin uses the default.
func NewSelector(library *Library, margin int) *Selector {
	if library == nil {
		library = DefaultLibrary()
	}
	if margin < 0 {
		margin = DefaultRegressionMargin
	}
	return &Selector{
		library:       library,
		margin:        margin,
		states:        make(map[types.StrategyID]Outcome),
		disabledTiers: make(map[types.RiskTier]bool),
	}
}

// Library returns the catalog the selector draws from.
func (s *Selector) Library() *Library {
	return s.library
}

// State returns the run-local state of a strategy.
func (s *Selector) State(id types.StrategyID) Outcome {
	if st, ok := s.states[id]; ok {
		return st
	}
	return NotTried
}

// TierDisabled reports whether a regression has disabled a risk tier.
func (s *Selector) TierDisabled(tier types.RiskTier) bool {
	return s.disabledTiers[tier]
}

// DisabledTiers returns the disabled tiers in sorted order.
func (s *Selector) DisabledTiers() []types.RiskTier {
	out := make([]types.RiskTier, 0, len(s.disabledTiers))
	for t := range s.disabledTiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Select returns the highest-priority eligible strategy for the diagnosis.
// The boolean is false when nothing qualifies; the run must then stop.
func (s *Selector) Select(d diagnosis.Diagnosis) (Strategy, bool) {
	if d.Status != diagnosis.StatusGap {
		return Strategy{}, false
	}
	for _, st := range s.library.strategies {
		if st.Triggers(d) && s.eligible(st) {
			return st, true
		}
	}
	return Strategy{}, false
}

// CategoryExhausted reports whether no eligible strategy is left for a category.
func (s *Selector) CategoryExhausted(category string, flags diagnosis.FlagSet) bool {
	for _, st := range s.library.strategies {
		if st.AppliesTo(category, flags) && s.eligible(st) {
			return false
		}
	}
	return true
}

// MarkApplied records that a strategy has been handed to the generator.
func (s *Selector) MarkApplied(id types.StrategyID) {
	s.states[id] = Applied
}

// MarkNoChange records a strategy whose work item produced no usable text.
func (s *Selector) MarkNoChange(id types.StrategyID) {
	s.states[id] = NoChange
}

// RecordOutcome classifies the result of applying a strategy and updates the
// run state. A regression permanently disables the strategy's risk tier.
func (s *Selector) RecordOutcome(id types.StrategyID, before, after int) Outcome {
	outcome := ClassifyOutcome(before, after, s.margin)
	s.states[id] = outcome
	if outcome == Regressed {
		if st, ok := s.library.Get(id); ok {
			s.disabledTiers[st.Tier] = true
		}
	}
	return outcome
}

func (s *Selector) eligible(st Strategy) bool {
	if s.disabledTiers[st.Tier] {
		return false
	}
	switch s.State(st.ID) {
	case NoChange, Regressed, Applied:
		return false
	}
	return true
}
