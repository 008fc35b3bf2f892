// Package types provides type definitions for structured data used throughout the essay-refiner system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"math"
	"sort"
)

// CategoryScore is one rubric dimension scored for a single text snapshot.
// Values are immutable once produced by the scorer.
type CategoryScore struct {
	Name     string   `json:"name"`
	RawScore float64  `json:"raw_score"` // 0-10
	Weight   float64  `json:"weight"`    // 0-1, weights sum to 1 across the rubric
	Evidence []string `json:"evidence,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// Scorecard is the full set of category scores for one text snapshot.
// The composite score is always derived from Categories and never stored on its own.
type Scorecard struct {
	RubricVersion string          `json:"rubric_version"`
	Categories    []CategoryScore `json:"categories"`
	Flags         []string        `json:"flags,omitempty"`
}

// Composite returns round(sum(raw/10 * weight) * 100), clamped to [0,100].
func (s *Scorecard) Composite() int {
	return CompositeScore(s.Categories)
}

// Category returns the named category score, if present.
func (s *Scorecard) Category(name string) (CategoryScore, bool) {
	for _, c := range s.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return CategoryScore{}, false
}

// HasFlag reports whether the evaluator or a detector raised the given flag.
func (s *Scorecard) HasFlag(flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// CompositeScore aggregates category scores into a single 0-100 value.
// The sum runs in name order so the result does not depend on input order.
func CompositeScore(categories []CategoryScore) int {
	ordered := make([]CategoryScore, len(categories))
	copy(ordered, categories)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	total := 0.0
	for _, c := range ordered {
		total += (c.RawScore / 10.0) * c.Weight
	}

	composite := int(math.Round(total * 100))
	if composite < 0 {
		return 0
	}
	if composite > 100 {
		return 100
	}
	return composite
}
