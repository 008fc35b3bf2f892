// Package refine owns the score, diagnose, select, generate, validate loop
// and the decision of when to stop.
package refine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/essay-refiner/internal/diagnosis"
	"github.com/jonathan/essay-refiner/internal/rubric"
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/trace"
	"github.com/jonathan/essay-refiner/internal/types"
	"github.com/jonathan/essay-refiner/internal/validation"
)

// Scorer scores a text against a rubric.
type Scorer interface {
	Score(ctx context.Context, text string, r *rubric.Rubric) (*types.Scorecard, error)
}

// Reviser runs one whole-text work item.
type Reviser interface {
	Revise(ctx context.Context, item validation.RevisionItem) (*validation.Revision, error)
}

// Options holds the optional collaborators of a Controller.
type Options struct {
	Logger     *slog.Logger
	OnProgress ProgressCallback
	Metrics    MetricsCollector
	// Now overrides the clock used for record timestamps.
	Now func() time.Time
}

// Controller runs refinement loops. It holds no per-run state, so one
// Controller may serve concurrent runs.
type Controller struct {
	scorer    Scorer
	reviser   Reviser
	rubric    *rubric.Rubric
	library   *strategy.Library
	extractor *diagnosis.Extractor
	cfg       Config
	opts      Options
}

// NewController creates a controller. A nil library uses the built-in catalog.
func NewController(scorer Scorer, reviser Reviser, r *rubric.Rubric, library *strategy.Library, cfg Config, opts Options) (*Controller, error) {
	if scorer == nil || reviser == nil {
		return nil, errors.New("refine: scorer and reviser are required")
	}
	if r == nil {
		r = rubric.Default()
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("refine: %w", err)
	}
	if library == nil {
		library = strategy.DefaultLibrary()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NoOpMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		scorer:    scorer,
		reviser:   reviser,
		rubric:    r,
		library:   library,
		extractor: diagnosis.NewExtractor(cfg.GoodEnoughFloor),
		cfg:       cfg,
		opts:      opts,
	}, nil
}

// Rubric returns the rubric runs are scored against.
func (c *Controller) Rubric() *rubric.Rubric {
	return c.rubric
}

// Request is the input of one run.
type Request struct {
	RunID   string
	Text    string
	Profile types.SourceProfile
}

// run is the per-run state. It is never shared between runs.
type run struct {
	id        string
	profile   types.SourceProfile
	trace     *trace.Trace
	selector  *strategy.Selector
	workItems []WorkItem
	logger    *slog.Logger
}

// Run refines req.Text until a stop condition holds and returns the best
// record seen. A scoring failure ends the run with an error.
func (c *Controller) Run(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("refine: text is required")
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	r := &run{
		id:       req.RunID,
		profile:  req.Profile,
		trace:    trace.New(),
		selector: strategy.NewSelector(c.library, c.cfg.RegressionMargin),
		logger:   c.opts.Logger.With("run_id", req.RunID),
	}

	baseline, err := c.score(ctx, r, req.Text, "")
	if err != nil {
		return nil, err
	}
	current, last := baseline, baseline

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		reason, st, d, stop := c.next(r, current, last)
		if stop {
			return c.finish(r, reason), nil
		}

		r.selector.MarkApplied(st.ID)
		c.emit(r, StepStrategySelected, d.Category, fmt.Sprintf("Applying %s to %s (%.1f)", st.ID, d.Category, d.RawScore), st)

		rev, err := c.reviser.Revise(ctx, validation.RevisionItem{
			ID: uuid.NewString(),
			Request: types.GenerationRequest{
				CurrentText:  current.Text,
				Profile:      r.profile,
				Directive:    st.Directive,
				PriorContext: priorContext(r.trace.Records()),
			},
		})
		if err != nil {
			var genErr *validation.GenerationFailure
			if !errors.As(err, &genErr) {
				return nil, err
			}
			r.selector.MarkNoChange(st.ID)
			r.workItems = append(r.workItems, WorkItem{ID: genErr.WorkItem, Strategy: st.ID, Status: WorkItemAbandoned, Attempts: genErr.Attempt})
			r.logger.Warn("work item abandoned, keeping current text", "strategy", st.ID, "error", err)
			c.emit(r, StepWorkItemAbandoned, d.Category, fmt.Sprintf("%s abandoned after generation failure", st.ID), genErr.WorkItem)
			continue
		}
		if rev.Dropped {
			r.selector.MarkNoChange(st.ID)
			r.workItems = append(r.workItems, WorkItem{ID: rev.WorkItem, Strategy: st.ID, Status: WorkItemDropped, Attempts: rev.Attempts})
			c.emit(r, StepWorkItemDropped, d.Category, fmt.Sprintf("%s dropped after %d rejected attempts", st.ID, rev.Attempts), rev.WorkItem)
			continue
		}

		r.workItems = append(r.workItems, WorkItem{
			ID:           rev.WorkItem,
			Strategy:     st.ID,
			Status:       WorkItemAccepted,
			Attempts:     rev.Attempts,
			QualityScore: rev.QualityScore,
			FailedOpen:   rev.FailedOpen,
		})
		c.emit(r, StepCandidateAccepted, d.Category, fmt.Sprintf("%s candidate accepted on attempt %d", st.ID, rev.Attempts), rev.QualityScore)

		rec, err := c.score(ctx, r, rev.Text, st.ID)
		if err != nil {
			return nil, err
		}
		outcome := r.selector.RecordOutcome(st.ID, current.CompositeScore, rec.CompositeScore)
		c.opts.Metrics.RecordIteration(rec.CompositeScore, st.ID, outcome)
		last = rec

		if outcome != strategy.Regressed {
			current = rec
			continue
		}
		best, _ := r.trace.Best()
		r.logger.Info("regression detected, tier disabled",
			"strategy", st.ID,
			"tier", st.Tier,
			"from", current.CompositeScore,
			"to", rec.CompositeScore,
			"rollback_to", best.AttemptIndex)
		c.opts.Metrics.RecordRollback(st.Tier)
		c.emit(r, StepRollback, string(st.Tier), fmt.Sprintf("%s dropped composite %d -> %d; tier %s disabled, reverting to attempt %d", st.ID, current.CompositeScore, rec.CompositeScore, st.Tier, best.AttemptIndex), best.AttemptIndex)
		current = best
	}
}

// next evaluates the stop conditions in order and, when the run continues,
// returns the strategy to apply to current.
func (c *Controller) next(r *run, current, last types.IterationRecord) (StopReason, strategy.Strategy, diagnosis.Diagnosis, bool) {
	if last.CompositeScore >= c.cfg.TargetScore {
		return Converged, strategy.Strategy{}, diagnosis.Diagnosis{}, true
	}
	if r.trace.Refinements() >= c.cfg.MaxIterations {
		return CappedOut, strategy.Strategy{}, diagnosis.Diagnosis{}, true
	}
	d := c.extractor.Diagnose(current.Scorecard(c.rubric.Version), current.Text, r.selector)
	st, ok := r.selector.Select(d)
	if !ok {
		r.logger.Debug("nothing left to apply", "diagnosis", d.Status, "below_floor", d.BelowFloor)
		return Exhausted, strategy.Strategy{}, d, true
	}
	if r.trace.Stagnant(c.cfg.StagnationWindow) {
		return Stagnant, strategy.Strategy{}, d, true
	}
	return "", st, d, false
}

func (c *Controller) score(ctx context.Context, r *run, text string, applied types.StrategyID) (types.IterationRecord, error) {
	card, err := c.scorer.Score(ctx, text, c.rubric)
	if err != nil {
		return types.IterationRecord{}, err
	}
	rec := r.trace.Append(types.IterationRecord{
		Text:            text,
		CompositeScore:  card.Composite(),
		CategoryScores:  card.Categories,
		Flags:           diagnosis.NewFlagSet(diagnosis.DetectFlags(text), card.Flags).Sorted(),
		StrategyApplied: applied,
		Timestamp:       c.opts.Now().UTC(),
	})
	r.logger.Debug("text scored", "attempt", rec.AttemptIndex, "composite", rec.CompositeScore, "strategy", applied)
	c.emit(r, StepScored, "", fmt.Sprintf("Attempt %d scored %d", rec.AttemptIndex, rec.CompositeScore), rec)
	return rec, nil
}

func (c *Controller) finish(r *run, reason StopReason) *Result {
	best, _ := r.trace.Best()
	res := &Result{
		RunID:         r.id,
		StopReason:    reason,
		Best:          best,
		Records:       r.trace.Records(),
		Refinements:   r.trace.Refinements(),
		WorkItems:     r.workItems,
		DisabledTiers: r.selector.DisabledTiers(),
	}
	for _, st := range c.library.All() {
		if o := r.selector.State(st.ID); o != strategy.NotTried {
			res.Strategies = append(res.Strategies, StrategyOutcome{ID: st.ID, Outcome: o})
		}
	}

	r.logger.Info("refinement stopped",
		"reason", reason,
		"best_composite", best.CompositeScore,
		"best_attempt", best.AttemptIndex,
		"refinements", res.Refinements)
	c.opts.Metrics.RecordStop(reason, best.CompositeScore, res.Refinements)
	c.emit(r, StepStopped, string(reason), fmt.Sprintf("Stopped (%s) with best composite %d", reason, best.CompositeScore), res)
	return res
}

func (c *Controller) emit(r *run, step, category, message string, content any) {
	if c.opts.OnProgress != nil {
		c.opts.OnProgress(ProgressEvent{
			Step:     step,
			Category: category,
			Message:  message,
			RunID:    r.id,
			Content:  content,
		})
	}
}

// priorContext summarizes the history for the generator.
func priorContext(records []types.IterationRecord) string {
	if len(records) <= 1 {
		return ""
	}
	var b strings.Builder
	for _, rec := range records {
		applied := string(rec.StrategyApplied)
		if applied == "" {
			applied = "baseline"
		}
		fmt.Fprintf(&b, "attempt %d (%s): %d\n", rec.AttemptIndex, applied, rec.CompositeScore)
	}
	return strings.TrimRight(b.String(), "\n")
}
