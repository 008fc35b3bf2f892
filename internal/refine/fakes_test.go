package refine

import (
	"context"
	"fmt"
	"sync"

	"github.com/jonathan/essay-refiner/internal/rubric"
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/types"
	"github.com/jonathan/essay-refiner/internal/validation"
)

// singleCategory makes composites equal to raw score × 10, so scripted
// composites map directly onto scorecards.
func singleCategory() *rubric.Rubric {
	return &rubric.Rubric{
		Version:    "test",
		Categories: []rubric.Category{{Name: "specificity", Weight: 1.0}},
	}
}

type fakeScorer struct {
	mu     sync.Mutex
	scores []int
	errs   map[int]error
	texts  []string
}

func (f *fakeScorer) Score(_ context.Context, text string, r *rubric.Rubric) (*types.Scorecard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.texts)
	f.texts = append(f.texts, text)
	if err := f.errs[i]; err != nil {
		return nil, err
	}
	if i >= len(f.scores) {
		return nil, fmt.Errorf("unexpected score call %d", i)
	}
	return &types.Scorecard{
		RubricVersion: r.Version,
		Categories: []types.CategoryScore{
			{Name: "specificity", RawScore: float64(f.scores[i]) / 10, Weight: 1.0},
		},
	}, nil
}

func (f *fakeScorer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.texts)
}

type revision struct {
	text    string
	dropped bool
	err     error
}

type fakeReviser struct {
	mu        sync.Mutex
	revisions []revision
	requests  []validation.RevisionItem
}

func (f *fakeReviser) Revise(_ context.Context, item validation.RevisionItem) (*validation.Revision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, item)
	i := len(f.requests) - 1
	if i >= len(f.revisions) {
		return nil, fmt.Errorf("unexpected revise call %d", i)
	}
	r := f.revisions[i]
	if r.err != nil {
		return nil, r.err
	}
	if r.dropped {
		return &validation.Revision{WorkItem: item.ID, Attempts: 3, Dropped: true}, nil
	}
	return &validation.Revision{WorkItem: item.ID, Text: r.text, Attempts: 1, QualityScore: 80}, nil
}

// texts builds n accepted revisions named "revision a", "revision b", ...
// Letters keep the quantified-metric flag from firing on the text.
func texts(n int) []revision {
	out := make([]revision, n)
	for i := range out {
		out[i] = revision{text: fmt.Sprintf("revision %c", 'a'+i)}
	}
	return out
}

type fakeMetrics struct {
	iterations []int
	rollbacks  []types.RiskTier
	stops      []StopReason
}

func (m *fakeMetrics) RecordIteration(composite int, _ types.StrategyID, _ strategy.Outcome) {
	m.iterations = append(m.iterations, composite)
}

func (m *fakeMetrics) RecordRollback(tier types.RiskTier) {
	m.rollbacks = append(m.rollbacks, tier)
}

func (m *fakeMetrics) RecordStop(reason StopReason, _, _ int) {
	m.stops = append(m.stops, reason)
}
