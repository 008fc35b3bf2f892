// Package diagnosis finds the weakest rubric dimension of a scored text and the
// structural features already present in it.
package diagnosis

import (
	"sort"

	"github.com/jonathan/essay-refiner/internal/types"
)

// DefaultFloor is the raw score at or above which a category is good enough.
const DefaultFloor = 8.0

// Status is the outcome of a diagnosis.
type Status string

const (
	// StatusGap means a category below the floor can still be worked on.
	StatusGap Status = "gap"
	// StatusNoGap means every category is at or above the floor.
	StatusNoGap Status = "no_gap"
	// StatusExhausted means categories below the floor remain but every one is exhausted.
	StatusExhausted Status = "exhausted"
)

// ExhaustionChecker reports whether every strategy applicable to a category
// has been tried this run without improvement.
type ExhaustionChecker interface {
	CategoryExhausted(category string, flags FlagSet) bool
}

// Diagnosis is the extractor's view of one scored text snapshot.
type Diagnosis struct {
	Status     Status
	Category   string  // weakest non-exhausted category when Status is StatusGap
	RawScore   float64 // its raw score
	Weight     float64 // its rubric weight
	BelowFloor []string
	Flags      FlagSet
}

// Extractor computes diagnoses. It holds no per-run state.
type Extractor struct {
	Floor float64
}

// NewExtractor creates an extractor with the given good-enough floor.
func NewExtractor(floor float64) *Extractor {
	if floor <= 0 {
		floor = DefaultFloor
	}
	return &Extractor{Floor: floor}
}

// Diagnose picks the lowest-scoring category below the floor that is not
// exhausted. Equal scores prefer the larger weight, then the name for a stable order.
func (e *Extractor) Diagnose(card *types.Scorecard, text string, exhausted ExhaustionChecker) Diagnosis {
	flags := NewFlagSet(DetectFlags(text), card.Flags)

	candidates := make([]types.CategoryScore, 0, len(card.Categories))
	var below []string
	for _, c := range card.Categories {
		if c.RawScore >= e.Floor {
			continue
		}
		below = append(below, c.Name)
		if exhausted != nil && exhausted.CategoryExhausted(c.Name, flags) {
			continue
		}
		candidates = append(candidates, c)
	}
	sort.Strings(below)

	if len(below) == 0 {
		return Diagnosis{Status: StatusNoGap, Flags: flags}
	}
	if len(candidates) == 0 {
		return Diagnosis{Status: StatusExhausted, BelowFloor: below, Flags: flags}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.RawScore != b.RawScore {
			return a.RawScore < b.RawScore
		}
		if a.Weight != b.Weight {
			return a.Weight > b.Weight
		}
		return a.Name < b.Name
	})

	weakest := candidates[0]
	return Diagnosis{
		Status:     StatusGap,
		Category:   weakest.Name,
		RawScore:   weakest.RawScore,
		Weight:     weakest.Weight,
		BelowFloor: below,
		Flags:      flags,
	}
}
