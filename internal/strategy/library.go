// Package strategy holds the closed catalog of corrective strategies and the
// selector that picks the next one to apply during a run.
package strategy

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/essay-refiner/internal/diagnosis"
	"github.com/jonathan/essay-refiner/internal/types"
)

// Strategy identifiers. The set is closed; overrides may only refer to these.
const (
	RemovePerformativeLanguage types.StrategyID = "remove_performative_language"
	AddNamedIndividual         types.StrategyID = "add_named_individual"
	DeepenReflection           types.StrategyID = "deepen_reflection"
	AddQuantifiedDetail        types.StrategyID = "add_quantified_detail"
	SurfaceDoubt               types.StrategyID = "surface_doubt"
	PlainVoicePass             types.StrategyID = "plain_voice_pass"
	AddSensoryDetail           types.StrategyID = "add_sensory_detail"
	AddDialogue                types.StrategyID = "add_dialogue"
	TightenPacing              types.StrategyID = "tighten_pacing"
	ReorderForTurn             types.StrategyID = "reorder_for_turn"
	NameTheCost                types.StrategyID = "name_the_cost"
	NonlinearRestructure       types.StrategyID = "nonlinear_restructure"
	ReframeOpening             types.StrategyID = "reframe_opening"
)

// Strategy is a structured corrective directive tied to the diagnoses it fixes.
type Strategy struct {
	ID types.StrategyID `json:"id"`
	// Categories are the rubric categories this strategy addresses.
	Categories []string `json:"categories"`
	// SatisfiedBy lists flags whose presence means the strategy's goal is already met.
	SatisfiedBy []string        `json:"satisfied_by,omitempty"`
	Tier        types.RiskTier  `json:"risk_tier"`
	Priority    int             `json:"priority"`
	Directive   types.Directive `json:"directive"`
}

// AppliesTo reports whether the strategy addresses category and its goal is not
// already satisfied by the text's structural flags.
func (s Strategy) AppliesTo(category string, flags diagnosis.FlagSet) bool {
	matches := false
	for _, c := range s.Categories {
		if c == category {
			matches = true
			break
		}
	}
	if !matches {
		return false
	}
	for _, f := range s.SatisfiedBy {
		if flags.Has(f) {
			return false
		}
	}
	return true
}

// Triggers reports whether the strategy's trigger condition matches a diagnosis.
func (s Strategy) Triggers(d diagnosis.Diagnosis) bool {
	return d.Status == diagnosis.StatusGap && s.AppliesTo(d.Category, d.Flags)
}

// Library is an ordered, immutable-after-load catalog of strategies.
type Library struct {
	strategies []Strategy
}

// NewLibrary builds a library from strategies, sorted by descending priority.
// Equal priorities keep their given order.
func NewLibrary(strategies []Strategy) *Library {
	sorted := make([]Strategy, len(strategies))
	copy(sorted, strategies)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })
	return &Library{strategies: sorted}
}

// All returns the strategies in selection order.
func (l *Library) All() []Strategy {
	out := make([]Strategy, len(l.strategies))
	copy(out, l.strategies)
	return out
}

// Get looks up a strategy by ID.
func (l *Library) Get(id types.StrategyID) (Strategy, bool) {
	for _, s := range l.strategies {
		if s.ID == id {
			return s, true
		}
	}
	return Strategy{}, false
}

// ForCategory returns the strategies that address a category, in selection order.
func (l *Library) ForCategory(category string) []Strategy {
	var out []Strategy
	for _, s := range l.strategies {
		for _, c := range s.Categories {
			if c == category {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// Override adjusts one built-in strategy. Zero-valued fields leave the default in place.
type Override struct {
	ID       types.StrategyID `yaml:"id" json:"id"`
	Priority *int             `yaml:"priority,omitempty" json:"priority,omitempty"`
	Disabled bool             `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Tier     types.RiskTier   `yaml:"risk_tier,omitempty" json:"risk_tier,omitempty"`
}

type overrideFile struct {
	Strategies []Override `yaml:"strategies"`
}

// WithOverrides returns a new library with overrides applied. Overrides that
// name an unknown strategy or tier are a configuration error.
func (l *Library) WithOverrides(overrides []Override) (*Library, error) {
	byID := make(map[types.StrategyID]Override, len(overrides))
	for _, o := range overrides {
		if _, ok := l.Get(o.ID); !ok {
			return nil, &ConfigError{Message: fmt.Sprintf("unknown strategy %q", o.ID)}
		}
		if o.Tier != "" && !validTier(o.Tier) {
			return nil, &ConfigError{Message: fmt.Sprintf("strategy %q has unknown risk tier %q", o.ID, o.Tier)}
		}
		byID[o.ID] = o
	}

	var out []Strategy
	for _, s := range l.strategies {
		o, ok := byID[s.ID]
		if !ok {
			out = append(out, s)
			continue
		}
		if o.Disabled {
			continue
		}
		if o.Priority != nil {
			s.Priority = *o.Priority
		}
		if o.Tier != "" {
			s.Tier = o.Tier
		}
		out = append(out, s)
	}
	return NewLibrary(out), nil
}

// Restrict keeps only the named strategies. An empty list keeps everything.
func (l *Library) Restrict(ids []types.StrategyID) (*Library, error) {
	if len(ids) == 0 {
		return l, nil
	}
	keep := make(map[types.StrategyID]bool, len(ids))
	for _, id := range ids {
		if _, ok := l.Get(id); !ok {
			return nil, &ConfigError{Message: fmt.Sprintf("unknown strategy %q", id)}
		}
		keep[id] = true
	}
	var out []Strategy
	for _, s := range l.strategies {
		if keep[s.ID] {
			out = append(out, s)
		}
	}
	return NewLibrary(out), nil
}

// LoadOverrides reads a YAML override file and applies it.
func (l *Library) LoadOverrides(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy file %s: %w", path, err)
	}
	var file overrideFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse strategy YAML: %w", err)
	}
	return l.WithOverrides(file.Strategies)
}

func validTier(t types.RiskTier) bool {
	switch t {
	case types.RiskSafe, types.RiskModerate, types.RiskBold:
		return true
	}
	return false
}
