package refine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/essay-refiner/internal/rubric"
	"github.com/jonathan/essay-refiner/internal/scoring"
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/types"
	"github.com/jonathan/essay-refiner/internal/validation"
)

const baselineText = "I joined the robotics club and it changed me."

func newController(t *testing.T, scorer Scorer, reviser Reviser, lib *strategy.Library, cfg Config, opts Options) *Controller {
	t.Helper()
	c, err := NewController(scorer, reviser, singleCategory(), lib, cfg, opts)
	require.NoError(t, err)
	return c
}

func runController(t *testing.T, c *Controller) *Result {
	t.Helper()
	res, err := c.Run(context.Background(), Request{RunID: "run-1", Text: baselineText, Profile: types.SourceProfile{Role: "builder"}})
	require.NoError(t, err)
	return res
}

func composites(records []types.IterationRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.CompositeScore
	}
	return out
}

func TestRun_StagnatesAndReturnsBest(t *testing.T) {
	scorer := &fakeScorer{scores: []int{60, 65, 63, 64, 64}}
	reviser := &fakeReviser{revisions: texts(4)}
	c := newController(t, scorer, reviser, nil, DefaultConfig(), Options{})

	res := runController(t, c)

	assert.Equal(t, Stagnant, res.StopReason)
	assert.Equal(t, 65, res.Best.CompositeScore)
	assert.Equal(t, 1, res.Best.AttemptIndex)
	assert.Equal(t, "revision a", res.Best.Text)
	assert.Equal(t, []int{60, 65, 63, 64, 64}, composites(res.Records))
	assert.Equal(t, 4, res.Refinements)
}

func TestRun_RegressionDisablesTierAndRollsBack(t *testing.T) {
	lib := strategy.NewLibrary([]strategy.Strategy{
		{ID: strategy.NonlinearRestructure, Categories: []string{"specificity"}, Tier: types.RiskBold, Priority: 100},
		{ID: strategy.ReframeOpening, Categories: []string{"specificity"}, Tier: types.RiskBold, Priority: 90},
		{ID: strategy.AddQuantifiedDetail, Categories: []string{"specificity"}, Tier: types.RiskSafe, Priority: 50},
	})
	scorer := &fakeScorer{scores: []int{79, 63, 80, 81}}
	reviser := &fakeReviser{revisions: texts(3)}
	metrics := &fakeMetrics{}
	var events []ProgressEvent
	cfg := DefaultConfig()
	cfg.MaxIterations = 3
	// Keep a gap open at 80 so the run ends on budget, not on Exhausted.
	cfg.GoodEnoughFloor = 9.5
	c := newController(t, scorer, reviser, lib, cfg, Options{
		Metrics:    metrics,
		OnProgress: func(ev ProgressEvent) { events = append(events, ev) },
	})

	res := runController(t, c)

	assert.Equal(t, []types.RiskTier{types.RiskBold}, res.DisabledTiers)
	require.Len(t, reviser.requests, 3)
	assert.Equal(t, baselineText, reviser.requests[0].Request.CurrentText)
	// After the regression the next strategy works on the 79-scoring text,
	// and the other bold strategy is skipped.
	assert.Equal(t, baselineText, reviser.requests[1].Request.CurrentText)
	assert.Equal(t, "revision b", reviser.requests[2].Request.CurrentText)

	assert.Equal(t, CappedOut, res.StopReason)
	assert.Equal(t, 81, res.Best.CompositeScore)
	assert.Equal(t, []types.RiskTier{types.RiskBold}, metrics.rollbacks)
	assert.Equal(t, []int{63, 80, 81}, metrics.iterations)
	assert.Equal(t, []StopReason{CappedOut}, metrics.stops)

	var rollbacks int
	for _, ev := range events {
		if ev.Step == StepRollback {
			rollbacks++
			assert.Equal(t, 0, ev.Content)
		}
		assert.Equal(t, "run-1", ev.RunID)
	}
	assert.Equal(t, 1, rollbacks)

	outcomes := map[types.StrategyID]strategy.Outcome{}
	for _, o := range res.Strategies {
		outcomes[o.ID] = o.Outcome
	}
	assert.Equal(t, strategy.Regressed, outcomes[strategy.NonlinearRestructure])
	assert.Equal(t, strategy.Improved, outcomes[strategy.AddQuantifiedDetail])
	assert.NotContains(t, outcomes, strategy.ReframeOpening)
}

func TestRun_ConvergedAtBaseline(t *testing.T) {
	scorer := &fakeScorer{scores: []int{90}}
	reviser := &fakeReviser{}
	c := newController(t, scorer, reviser, nil, DefaultConfig(), Options{})

	res := runController(t, c)

	assert.Equal(t, Converged, res.StopReason)
	assert.Equal(t, 0, res.Refinements)
	assert.Empty(t, reviser.requests)
}

func TestRun_ConvergesAfterRefinement(t *testing.T) {
	scorer := &fakeScorer{scores: []int{70, 86}}
	c := newController(t, scorer, &fakeReviser{revisions: texts(1)}, nil, DefaultConfig(), Options{})

	res := runController(t, c)

	assert.Equal(t, Converged, res.StopReason)
	assert.Equal(t, 86, res.Best.CompositeScore)
	assert.Equal(t, strategy.AddNamedIndividual, res.Best.StrategyApplied)
}

func TestRun_CappedOutRespectsBudget(t *testing.T) {
	scorer := &fakeScorer{scores: []int{60, 62, 64, 66}}
	cfg := DefaultConfig()
	cfg.MaxIterations = 2
	c := newController(t, scorer, &fakeReviser{revisions: texts(3)}, nil, cfg, Options{})

	res := runController(t, c)

	assert.Equal(t, CappedOut, res.StopReason)
	assert.Equal(t, 2, res.Refinements)
	assert.Equal(t, cfg.MaxIterations+1, scorer.calls())
	assert.Equal(t, 64, res.Best.CompositeScore)
}

func TestRun_NoGapIsExhausted(t *testing.T) {
	scorer := &fakeScorer{scores: []int{80}}
	reviser := &fakeReviser{}
	c := newController(t, scorer, reviser, nil, DefaultConfig(), Options{})

	res := runController(t, c)

	assert.Equal(t, Exhausted, res.StopReason)
	assert.Empty(t, reviser.requests)
}

func TestRun_DroppedWorkItemsExhaustStrategies(t *testing.T) {
	lib := strategy.NewLibrary([]strategy.Strategy{
		{ID: strategy.AddQuantifiedDetail, Categories: []string{"specificity"}, Tier: types.RiskSafe, Priority: 50},
	})
	scorer := &fakeScorer{scores: []int{60}}
	reviser := &fakeReviser{revisions: []revision{{dropped: true}}}
	c := newController(t, scorer, reviser, lib, DefaultConfig(), Options{})

	res := runController(t, c)

	assert.Equal(t, Exhausted, res.StopReason)
	assert.Equal(t, 1, scorer.calls())
	require.Len(t, res.WorkItems, 1)
	assert.Equal(t, WorkItemDropped, res.WorkItems[0].Status)
	assert.Equal(t, []StrategyOutcome{{ID: strategy.AddQuantifiedDetail, Outcome: strategy.NoChange}}, res.Strategies)
}

func TestRun_GenerationFailureAbandonsWorkItemOnly(t *testing.T) {
	genErr := &validation.GenerationFailure{WorkItem: "w1", Attempt: 2, Message: "generator failed after retry", Cause: errors.New("timeout")}
	scorer := &fakeScorer{scores: []int{60, 70}}
	cfg := DefaultConfig()
	cfg.MaxIterations = 1
	reviser := &fakeReviser{revisions: []revision{{err: genErr}, {text: "second try"}}}
	c := newController(t, scorer, reviser, nil, cfg, Options{})

	res := runController(t, c)

	assert.Equal(t, CappedOut, res.StopReason)
	assert.Equal(t, 2, scorer.calls())
	require.Len(t, reviser.requests, 2)
	assert.Equal(t, baselineText, reviser.requests[1].Request.CurrentText)
	assert.NotEqual(t, reviser.requests[0].Request.Directive, reviser.requests[1].Request.Directive)

	require.Len(t, res.WorkItems, 2)
	assert.Equal(t, WorkItemAbandoned, res.WorkItems[0].Status)
	assert.Equal(t, "w1", res.WorkItems[0].ID)
	assert.Equal(t, WorkItemAccepted, res.WorkItems[1].Status)
}

func TestRun_ScoringFailurePropagates(t *testing.T) {
	failure := &scoring.ScoringFailure{RubricVersion: "test", Message: "evaluation response is incomplete", Missing: []string{"specificity"}}
	scorer := &fakeScorer{scores: []int{60}, errs: map[int]error{1: failure}}
	c := newController(t, scorer, &fakeReviser{revisions: texts(1)}, nil, DefaultConfig(), Options{})

	res, err := c.Run(context.Background(), Request{Text: baselineText})
	assert.Nil(t, res)

	var sf *scoring.ScoringFailure
	require.True(t, errors.As(err, &sf))
	assert.Equal(t, []string{"specificity"}, sf.Missing)
}

func TestRun_BaselineScoringFailure(t *testing.T) {
	scorer := &fakeScorer{errs: map[int]error{0: &scoring.ScoringFailure{Message: "evaluation call failed"}}}
	reviser := &fakeReviser{}
	c := newController(t, scorer, reviser, nil, DefaultConfig(), Options{})

	_, err := c.Run(context.Background(), Request{Text: baselineText})
	require.Error(t, err)
	assert.Empty(t, reviser.requests)
}

func TestRun_ReviserContextErrorPropagates(t *testing.T) {
	scorer := &fakeScorer{scores: []int{60}}
	reviser := &fakeReviser{revisions: []revision{{err: context.DeadlineExceeded}}}
	c := newController(t, scorer, reviser, nil, DefaultConfig(), Options{})

	_, err := c.Run(context.Background(), Request{Text: baselineText})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_BestIsNeverBelowAnyRecord(t *testing.T) {
	sequences := [][]int{
		{60, 65, 63, 64, 64},
		{50, 70, 40, 45, 48, 49},
		{79, 63, 60, 62, 61, 64},
		{40, 41, 42, 43, 44, 45},
		{70, 60, 55, 50, 45, 40},
	}
	for _, scores := range sequences {
		scorer := &fakeScorer{scores: scores}
		c := newController(t, scorer, &fakeReviser{revisions: texts(len(scores))}, nil, DefaultConfig(), Options{})

		res := runController(t, c)

		for _, rec := range res.Records {
			assert.GreaterOrEqual(t, res.Best.CompositeScore, rec.CompositeScore, "sequence %v", scores)
		}
		assert.LessOrEqual(t, scorer.calls(), DefaultMaxIterations+1)
	}
}

func TestRun_RecordsCarryStrategyAndTimestamp(t *testing.T) {
	now := time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)
	scorer := &fakeScorer{scores: []int{70, 90}}
	c := newController(t, scorer, &fakeReviser{revisions: texts(1)}, nil, DefaultConfig(), Options{Now: func() time.Time { return now }})

	res := runController(t, c)

	require.Len(t, res.Records, 2)
	assert.Empty(t, res.Records[0].StrategyApplied)
	assert.Equal(t, strategy.AddNamedIndividual, res.Records[1].StrategyApplied)
	assert.Equal(t, now, res.Records[1].Timestamp)
	assert.Equal(t, "run-1", res.RunID)
}

func TestRun_PriorContextPassedToGenerator(t *testing.T) {
	scorer := &fakeScorer{scores: []int{60, 65, 90}}
	reviser := &fakeReviser{revisions: texts(2)}
	c := newController(t, scorer, reviser, nil, DefaultConfig(), Options{})

	runController(t, c)

	require.Len(t, reviser.requests, 2)
	assert.Empty(t, reviser.requests[0].Request.PriorContext)
	assert.Equal(t, "attempt 0 (baseline): 60\nattempt 1 (add_named_individual): 65", reviser.requests[1].Request.PriorContext)
	assert.Equal(t, "builder", reviser.requests[1].Request.Profile.Role)
}

func TestRun_EmptyText(t *testing.T) {
	c := newController(t, &fakeScorer{}, &fakeReviser{}, nil, DefaultConfig(), Options{})
	_, err := c.Run(context.Background(), Request{Text: "  "})
	assert.Error(t, err)
}

func TestNewController_Validation(t *testing.T) {
	_, err := NewController(nil, &fakeReviser{}, nil, nil, DefaultConfig(), Options{})
	assert.Error(t, err)

	bad := &rubric.Rubric{Version: "bad", Categories: []rubric.Category{{Name: "a", Weight: 0.3}}}
	_, err = NewController(&fakeScorer{}, &fakeReviser{}, bad, nil, DefaultConfig(), Options{})
	var cfgErr *rubric.ConfigError
	assert.True(t, errors.As(err, &cfgErr))

	cfg := DefaultConfig()
	cfg.MaxIterations = 0
	_, err = NewController(&fakeScorer{}, &fakeReviser{}, nil, nil, cfg, Options{})
	assert.ErrorContains(t, err, "max_iterations")
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"target above 100", func(c *Config) { c.TargetScore = 101 }},
		{"zero window", func(c *Config) { c.StagnationWindow = 0 }},
		{"negative margin", func(c *Config) { c.RegressionMargin = -1 }},
		{"floor above 10", func(c *Config) { c.GoodEnoughFloor = 11 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
