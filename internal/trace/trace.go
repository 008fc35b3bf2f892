// Package trace keeps the append-only record of every scored attempt in a run.
package trace

import (
	"github.com/jonathan/essay-refiner/internal/types"
)

// Trace is the iteration history of one run. Records are never modified or
// removed once appended. Not safe for concurrent use.
type Trace struct {
	records []types.IterationRecord
	best    int
}

// New creates an empty trace.
func New() *Trace {
	return &Trace{best: -1}
}

// Append adds a record. AttemptIndex is assigned from the trace length.
func (t *Trace) Append(r types.IterationRecord) types.IterationRecord {
	r.AttemptIndex = len(t.records)
	r.CategoryScores = append([]types.CategoryScore(nil), r.CategoryScores...)
	r.Flags = append([]string(nil), r.Flags...)
	t.records = append(t.records, r)
	if t.best < 0 || r.CompositeScore > t.records[t.best].CompositeScore {
		t.best = len(t.records) - 1
	}
	return r
}

// Len returns the number of records, baseline included.
func (t *Trace) Len() int {
	return len(t.records)
}

// Refinements returns the number of records after the baseline.
func (t *Trace) Refinements() int {
	if len(t.records) == 0 {
		return 0
	}
	return len(t.records) - 1
}

// Records returns a copy of the history.
func (t *Trace) Records() []types.IterationRecord {
	out := make([]types.IterationRecord, len(t.records))
	copy(out, t.records)
	return out
}

// Last returns the most recent record.
func (t *Trace) Last() (types.IterationRecord, bool) {
	if len(t.records) == 0 {
		return types.IterationRecord{}, false
	}
	return t.records[len(t.records)-1], true
}

// Best returns the highest-scoring record. Ties keep the earliest.
func (t *Trace) Best() (types.IterationRecord, bool) {
	if t.best < 0 {
		return types.IterationRecord{}, false
	}
	return t.records[t.best], true
}

// Stagnant reports whether the last k records failed to beat every earlier one.
// It needs at least k records after the first before it can trigger.
func (t *Trace) Stagnant(k int) bool {
	if k < 1 || len(t.records) <= k {
		return false
	}
	split := len(t.records) - k
	return maxComposite(t.records[split:]) <= maxComposite(t.records[:split])
}

func maxComposite(records []types.IterationRecord) int {
	m := records[0].CompositeScore
	for _, r := range records[1:] {
		if r.CompositeScore > m {
			m = r.CompositeScore
		}
	}
	return m
}
