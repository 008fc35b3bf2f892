package scoring

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/essay-refiner/internal/rubric"
	"github.com/jonathan/essay-refiner/internal/types"
)

type fakeEvaluator struct {
	mu        sync.Mutex
	responses []*types.EvaluationResponse
	err       error
	calls     int
	lastReq   types.EvaluationRequest
}

func (f *fakeEvaluator) Evaluate(_ context.Context, req types.EvaluationRequest) (*types.EvaluationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastReq = req
	idx := f.calls
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func twoCategoryRubric() *rubric.Rubric {
	return &rubric.Rubric{
		Version: "test",
		Categories: []rubric.Category{
			{Name: "A", Weight: 0.5},
			{Name: "B", Weight: 0.5},
		},
	}
}

func TestScore_Composite(t *testing.T) {
	eval := &fakeEvaluator{responses: []*types.EvaluationResponse{{
		Categories: []types.EvaluatedCategory{
			{Name: "B", Score: 8, Evidence: []string{"the lab at 3am"}},
			{Name: "A", Score: 4, Notes: "generic opening"},
		},
		Flags: []string{"has_metrics"},
	}}}

	card, err := NewScorer(eval).Score(context.Background(), "essay text", twoCategoryRubric())
	require.NoError(t, err)

	assert.Equal(t, 60, card.Composite())
	require.Len(t, card.Categories, 2)
	assert.Equal(t, "A", card.Categories[0].Name, "result follows rubric order")
	assert.Equal(t, 0.5, card.Categories[0].Weight)
	assert.Equal(t, "generic opening", card.Categories[0].Notes)
	assert.Equal(t, []string{"the lab at 3am"}, card.Categories[1].Evidence)
	assert.Equal(t, []string{"has_metrics"}, card.Flags)

	assert.Equal(t, "test", eval.lastReq.RubricVersion)
	assert.Equal(t, []string{"A", "B"}, eval.lastReq.Categories)
	assert.Equal(t, "essay text", eval.lastReq.Text)
}

func TestScore_MissingCategoryFails(t *testing.T) {
	eval := &fakeEvaluator{responses: []*types.EvaluationResponse{{
		Categories: []types.EvaluatedCategory{{Name: "A", Score: 4}},
	}}}

	card, err := NewScorer(eval).Score(context.Background(), "text", twoCategoryRubric())
	require.Error(t, err)
	assert.Nil(t, card)

	var failure *ScoringFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, []string{"B"}, failure.Missing)
	assert.Contains(t, err.Error(), "missing: B")
}

func TestScore_MalformedResponses(t *testing.T) {
	tests := []struct {
		name    string
		resp    *types.EvaluationResponse
		message string
	}{
		{
			name: "duplicate category",
			resp: &types.EvaluationResponse{Categories: []types.EvaluatedCategory{
				{Name: "A", Score: 4}, {Name: "A", Score: 5}, {Name: "B", Score: 5},
			}},
			message: "more than once",
		},
		{
			name: "score above range",
			resp: &types.EvaluationResponse{Categories: []types.EvaluatedCategory{
				{Name: "A", Score: 11}, {Name: "B", Score: 5},
			}},
			message: "outside 0-10",
		},
		{
			name: "negative score",
			resp: &types.EvaluationResponse{Categories: []types.EvaluatedCategory{
				{Name: "A", Score: -1}, {Name: "B", Score: 5},
			}},
			message: "outside 0-10",
		},
		{
			name:    "nil response",
			resp:    nil,
			message: "no response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := &fakeEvaluator{responses: []*types.EvaluationResponse{tt.resp}}
			_, err := NewScorer(eval).Score(context.Background(), "text", twoCategoryRubric())
			require.Error(t, err)
			var failure *ScoringFailure
			assert.True(t, errors.As(err, &failure))
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestScore_UnknownCategoriesIgnored(t *testing.T) {
	eval := &fakeEvaluator{responses: []*types.EvaluationResponse{{
		Categories: []types.EvaluatedCategory{
			{Name: "A", Score: 4}, {Name: "B", Score: 8}, {Name: "extra", Score: 1},
		},
	}}}

	card, err := NewScorer(eval).Score(context.Background(), "text", twoCategoryRubric())
	require.NoError(t, err)
	assert.Len(t, card.Categories, 2)
	assert.Equal(t, 60, card.Composite())
}

func TestScore_EvaluatorErrorWrapped(t *testing.T) {
	cause := errors.New("deadline exceeded")
	eval := &fakeEvaluator{err: cause}

	_, err := NewScorer(eval).Score(context.Background(), "text", twoCategoryRubric())
	require.Error(t, err)

	var failure *ScoringFailure
	require.True(t, errors.As(err, &failure))
	assert.ErrorIs(t, err, cause)
}

type hangingEvaluator struct{}

func (hangingEvaluator) Evaluate(ctx context.Context, _ types.EvaluationRequest) (*types.EvaluationResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestScore_TimeoutBoundsEvaluatorCall(t *testing.T) {
	scorer := NewScorer(hangingEvaluator{}, WithTimeout(20*time.Millisecond))

	done := make(chan error, 1)
	go func() {
		_, err := scorer.Score(context.Background(), "text", twoCategoryRubric())
		done <- err
	}()

	select {
	case err := <-done:
		var failure *ScoringFailure
		require.True(t, errors.As(err, &failure))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("Score did not return after the evaluator timeout")
	}
}

func TestScore_TimeoutAppliesPerSample(t *testing.T) {
	scorer := NewScorer(hangingEvaluator{}, WithSamples(3), WithTimeout(20*time.Millisecond))

	_, err := scorer.Score(context.Background(), "text", twoCategoryRubric())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScore_InvalidRubricIsConfigError(t *testing.T) {
	eval := &fakeEvaluator{}
	bad := &rubric.Rubric{Version: "bad", Categories: []rubric.Category{{Name: "A", Weight: 0.3}}}

	_, err := NewScorer(eval).Score(context.Background(), "text", bad)
	require.Error(t, err)

	var cfgErr *rubric.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, 0, eval.calls, "evaluator must not be called for a broken rubric")
}

func TestScore_AveragesSamples(t *testing.T) {
	eval := &fakeEvaluator{responses: []*types.EvaluationResponse{
		{Categories: []types.EvaluatedCategory{{Name: "A", Score: 4}, {Name: "B", Score: 8}}, Flags: []string{"x"}},
		{Categories: []types.EvaluatedCategory{{Name: "B", Score: 6}, {Name: "A", Score: 6}}, Flags: []string{"y", "x"}},
	}}

	scorer := NewScorer(eval, WithSamples(2))
	card, err := scorer.Score(context.Background(), "text", twoCategoryRubric())
	require.NoError(t, err)

	assert.Equal(t, 2, eval.calls)
	assert.InDelta(t, 5.0, card.Categories[0].RawScore, 1e-9)
	assert.InDelta(t, 7.0, card.Categories[1].RawScore, 1e-9)
	assert.Equal(t, 60, card.Composite())
	assert.Equal(t, []string{"x", "y"}, card.Flags)
}

func TestScore_SampleFailureFailsScore(t *testing.T) {
	eval := &fakeEvaluator{responses: []*types.EvaluationResponse{
		{Categories: []types.EvaluatedCategory{{Name: "A", Score: 4}}},
	}}

	_, err := NewScorer(eval, WithSamples(3)).Score(context.Background(), "text", twoCategoryRubric())
	require.Error(t, err)
	var failure *ScoringFailure
	assert.True(t, errors.As(err, &failure))
}

func TestWithSamples_Clamped(t *testing.T) {
	assert.Equal(t, 1, NewScorer(nil, WithSamples(0)).Samples())
	assert.Equal(t, MaxSamples, NewScorer(nil, WithSamples(50)).Samples())
	assert.Equal(t, 3, NewScorer(nil, WithSamples(3)).Samples())
}
