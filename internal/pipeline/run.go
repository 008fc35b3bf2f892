package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/essay-refiner/internal/db"
	"github.com/jonathan/essay-refiner/internal/diagnosis"
	"github.com/jonathan/essay-refiner/internal/oracle"
	"github.com/jonathan/essay-refiner/internal/refine"
	"github.com/jonathan/essay-refiner/internal/types"
)

// Store persists runs for post-hoc analysis. *db.DB implements it.
type Store interface {
	CreateRun(ctx context.Context, input *db.RunInput) (uuid.UUID, error)
	SaveIterationRecord(ctx context.Context, runID uuid.UUID, rec *types.IterationRecord) error
	SaveWorkItem(ctx context.Context, item *db.WorkItem) error
	CompleteRun(ctx context.Context, runID uuid.UUID, c *db.RunCompletion) error
	FailRun(ctx context.Context, runID uuid.UUID, message string) error
}

// RunOptions holds the input of one refinement run
type RunOptions struct {
	Text       string
	Profile    types.SourceProfile
	OnProgress refine.ProgressCallback
}

// Run refines one text. Persistence failures are logged and never fail the run.
func (e *Engine) Run(ctx context.Context, opts RunOptions) (*refine.Result, error) {
	runID := uuid.New()
	logger := e.logger.With("run_id", runID.String())
	oracle.LogInjectionWarning(logger, oracle.CheckInjection(opts.Text), "refine")

	persisted := e.store != nil
	if persisted {
		_, err := e.store.CreateRun(ctx, &db.RunInput{
			ID:            runID,
			RubricVersion: e.rubric.Version,
			Provider:      e.cfg.Provider,
			TargetScore:   e.cfg.TargetScore,
			MaxIterations: e.cfg.MaxIterations,
			InputText:     opts.Text,
		})
		if err != nil {
			logger.Warn("failed to create database run, continuing without persistence", "error", err)
			persisted = false
		}
	}

	ctrl, err := e.controller(opts.OnProgress)
	if err != nil {
		return nil, err
	}

	result, err := ctrl.Run(ctx, refine.Request{RunID: runID.String(), Text: opts.Text, Profile: opts.Profile})
	if err != nil {
		if persisted {
			// The run context may be the reason for the failure.
			if ferr := e.store.FailRun(context.WithoutCancel(ctx), runID, err.Error()); ferr != nil {
				logger.Warn("failed to mark run failed", "error", ferr)
			}
		}
		return nil, err
	}

	if persisted {
		e.persist(context.WithoutCancel(ctx), runID, result)
	}
	return result, nil
}

// persist writes the trace, work items and summary of a finished run.
func (e *Engine) persist(ctx context.Context, runID uuid.UUID, result *refine.Result) {
	logger := e.logger.With("run_id", runID.String())

	for i := range result.Records {
		if err := e.store.SaveIterationRecord(ctx, runID, &result.Records[i]); err != nil {
			logger.Warn("failed to save iteration record", "attempt", result.Records[i].AttemptIndex, "error", err)
		}
	}

	for _, w := range result.WorkItems {
		id, err := uuid.Parse(w.ID)
		if err != nil {
			id = uuid.New()
		}
		item := &db.WorkItem{
			ID:           id,
			RunID:        runID,
			Strategy:     w.Strategy,
			Status:       w.Status,
			Attempts:     w.Attempts,
			QualityScore: w.QualityScore,
			FailedOpen:   w.FailedOpen,
		}
		if err := e.store.SaveWorkItem(ctx, item); err != nil {
			logger.Warn("failed to save work item", "work_item", w.ID, "error", err)
		}
	}

	err := e.store.CompleteRun(ctx, runID, &db.RunCompletion{
		StopReason:    string(result.StopReason),
		BestAttempt:   result.Best.AttemptIndex,
		BestComposite: result.Best.CompositeScore,
		Refinements:   result.Refinements,
		DisabledTiers: result.DisabledTiers,
	})
	if err != nil {
		logger.Warn("failed to complete database run", "error", err)
	}
}

// ScoreResult is a one-shot scoring of a text with its diagnosis.
type ScoreResult struct {
	Composite  int              `json:"composite_score"`
	Scorecard  *types.Scorecard `json:"scorecard"`
	Diagnosis  diagnosis.Status `json:"diagnosis"`
	Category   string           `json:"category,omitempty"`
	BelowFloor []string         `json:"below_floor,omitempty"`
	Flags      []string         `json:"flags,omitempty"`
}

// Score scores text once and diagnoses its weakest category.
func (e *Engine) Score(ctx context.Context, text string) (*ScoreResult, error) {
	oracle.LogInjectionWarning(e.logger, oracle.CheckInjection(text), "score")
	card, err := e.scorer.Score(ctx, text, e.rubric)
	if err != nil {
		return nil, err
	}
	d := diagnosis.NewExtractor(e.cfg.GoodEnoughFloor).Diagnose(card, text, nil)
	return &ScoreResult{
		Composite:  card.Composite(),
		Scorecard:  card,
		Diagnosis:  d.Status,
		Category:   d.Category,
		BelowFloor: d.BelowFloor,
		Flags:      d.Flags.Sorted(),
	}, nil
}

// SuggestOptions holds the input of a suggestion batch
type SuggestOptions struct {
	Text        string
	Profile     types.SourceProfile
	Passages    []string
	MaxPassages int
	OnProgress  refine.ProgressCallback
}

// Suggest produces validated passage rewrites for the text's weakest category.
func (e *Engine) Suggest(ctx context.Context, opts SuggestOptions) (*refine.SuggestResult, error) {
	oracle.LogInjectionWarning(e.logger, oracle.CheckInjection(opts.Text), "suggest")
	ctrl, err := e.controller(opts.OnProgress)
	if err != nil {
		return nil, err
	}
	maxPassages := opts.MaxPassages
	if maxPassages <= 0 {
		maxPassages = e.cfg.MaxPassages
	}
	result, err := ctrl.Suggest(ctx, e.loop, refine.SuggestRequest{
		Text:        opts.Text,
		Profile:     opts.Profile,
		Passages:    opts.Passages,
		MaxPassages: maxPassages,
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion batch failed: %w", err)
	}
	return result, nil
}
