// Package scoring turns a text into rubric category scores and a composite score.
package scoring

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/essay-refiner/internal/rubric"
	"github.com/jonathan/essay-refiner/internal/types"
)

// MaxSamples bounds how many evaluator calls a single Score may fan out to.
const MaxSamples = 5

// Evaluator is the external evaluation oracle.
type Evaluator interface {
	Evaluate(ctx context.Context, req types.EvaluationRequest) (*types.EvaluationResponse, error)
}

// Scorer scores texts against a rubric. It holds no state across calls; any
// non-determinism comes from the evaluator.
type Scorer struct {
	evaluator Evaluator
	samples   int
	timeout   time.Duration
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithSamples makes each Score call average n evaluator samples.
func WithSamples(n int) Option {
	return func(s *Scorer) {
		if n < 1 {
			n = 1
		}
		if n > MaxSamples {
			n = MaxSamples
		}
		s.samples = n
	}
}

// WithTimeout bounds each evaluator call. Zero means no per-call limit.
func WithTimeout(d time.Duration) Option {
	return func(s *Scorer) {
		s.timeout = d
	}
}

// NewScorer creates a Scorer backed by the given evaluator.
func NewScorer(evaluator Evaluator, opts ...Option) *Scorer {
	s := &Scorer{evaluator: evaluator, samples: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Samples returns the number of evaluator calls made per Score.
func (s *Scorer) Samples() int {
	return s.samples
}

// Score evaluates text against the rubric. A malformed or incomplete evaluator
// response yields a *ScoringFailure; missing categories are never defaulted.
func (s *Scorer) Score(ctx context.Context, text string, r *rubric.Rubric) (*types.Scorecard, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	req := types.EvaluationRequest{
		Text:          text,
		RubricVersion: r.Version,
		Categories:    r.Names(),
	}
	if desc := descriptions(r); len(desc) > 0 {
		req.Context = map[string]any{types.ContextCategoryDescriptions: desc}
	}

	samples := make([][]types.CategoryScore, s.samples)
	flagSets := make([][]string, s.samples)

	if s.samples == 1 {
		cats, flags, err := s.evaluateOnce(ctx, req, r)
		if err != nil {
			return nil, err
		}
		samples[0], flagSets[0] = cats, flags
	} else {
		g, gCtx := errgroup.WithContext(ctx)
		for i := 0; i < s.samples; i++ {
			g.Go(func() error {
				cats, flags, err := s.evaluateOnce(gCtx, req, r)
				if err != nil {
					return err
				}
				samples[i], flagSets[i] = cats, flags
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return &types.Scorecard{
		RubricVersion: r.Version,
		Categories:    average(samples),
		Flags:         unionFlags(flagSets),
	}, nil
}

func (s *Scorer) evaluateOnce(ctx context.Context, req types.EvaluationRequest, r *rubric.Rubric) ([]types.CategoryScore, []string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	resp, err := s.evaluator.Evaluate(ctx, req)
	if err != nil {
		return nil, nil, &ScoringFailure{RubricVersion: r.Version, Message: "evaluation call failed", Cause: err}
	}
	if resp == nil {
		return nil, nil, &ScoringFailure{RubricVersion: r.Version, Message: "evaluation returned no response"}
	}
	cats, err := BuildCategoryScores(resp, r)
	if err != nil {
		return nil, nil, err
	}
	return cats, resp.Flags, nil
}

// BuildCategoryScores matches an evaluator response to the rubric. Categories
// may arrive in any order; the result follows rubric order. Unknown categories
// are ignored.
func BuildCategoryScores(resp *types.EvaluationResponse, r *rubric.Rubric) ([]types.CategoryScore, error) {
	byName := make(map[string]types.EvaluatedCategory, len(resp.Categories))
	for _, c := range resp.Categories {
		if _, dup := byName[c.Name]; dup {
			return nil, &ScoringFailure{RubricVersion: r.Version, Message: fmt.Sprintf("category %q reported more than once", c.Name)}
		}
		if math.IsNaN(c.Score) || c.Score < 0 || c.Score > 10 {
			return nil, &ScoringFailure{RubricVersion: r.Version, Message: fmt.Sprintf("category %q score %v outside 0-10", c.Name, c.Score)}
		}
		byName[c.Name] = c
	}

	var missing []string
	scores := make([]types.CategoryScore, 0, len(r.Categories))
	for _, cat := range r.Categories {
		got, ok := byName[cat.Name]
		if !ok {
			missing = append(missing, cat.Name)
			continue
		}
		scores = append(scores, types.CategoryScore{
			Name:     cat.Name,
			RawScore: got.Score,
			Weight:   cat.Weight,
			Evidence: got.Evidence,
			Notes:    got.Notes,
		})
	}
	if len(missing) > 0 {
		return nil, &ScoringFailure{
			RubricVersion: r.Version,
			Message:       "evaluation response is incomplete",
			Missing:       missing,
		}
	}
	return scores, nil
}

// average takes the per-category mean across samples. Every sample is in
// rubric order, so categories line up by index. Evidence and notes come from
// the first sample.
func average(samples [][]types.CategoryScore) []types.CategoryScore {
	if len(samples) == 1 {
		return samples[0]
	}
	out := make([]types.CategoryScore, len(samples[0]))
	copy(out, samples[0])
	for i := range out {
		total := 0.0
		for _, sample := range samples {
			total += sample[i].RawScore
		}
		out[i].RawScore = total / float64(len(samples))
	}
	return out
}

func unionFlags(sets [][]string) []string {
	seen := make(map[string]bool)
	var flags []string
	for _, set := range sets {
		for _, f := range set {
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			flags = append(flags, f)
		}
	}
	sort.Strings(flags)
	return flags
}

func descriptions(r *rubric.Rubric) map[string]string {
	out := make(map[string]string)
	for _, c := range r.Categories {
		if c.Description != "" {
			out[c.Name] = c.Description
		}
	}
	return out
}
