package validation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/essay-refiner/internal/types"
)

// Generator is the candidate generation call in both of its modes.
type Generator interface {
	Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error)
	Suggest(ctx context.Context, req types.SuggestionRequest) (*types.SuggestionResponse, error)
}

// AttemptEvent describes one generate and validate attempt within a work item.
type AttemptEvent struct {
	WorkItem     string
	Attempt      int
	Accepted     bool
	FailedOpen   bool
	QualityScore int
	// GenerationErr is set when the generator call itself failed.
	GenerationErr error
}

// Loop runs the bounded generate, validate, retry cycle for work items.
// A Loop is stateless between work items and may be shared by concurrent runs.
type Loop struct {
	generator   Generator
	validator   *Validator
	maxAttempts int
	timeout     time.Duration
	logger      *slog.Logger
	onAttempt   func(AttemptEvent)
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMaxAttempts bounds generation calls per work item.
func WithMaxAttempts(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithGenerationTimeout bounds each generator call. Zero means no timeout.
func WithGenerationTimeout(d time.Duration) LoopOption {
	return func(l *Loop) { l.timeout = d }
}

// WithLoopLogger sets the loop's logger.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithAttemptHook registers a callback invoked after every attempt.
func WithAttemptHook(fn func(AttemptEvent)) LoopOption {
	return func(l *Loop) { l.onAttempt = fn }
}

// NewLoop creates a work-item loop.
func NewLoop(generator Generator, validator *Validator, opts ...LoopOption) *Loop {
	l := &Loop{
		generator:   generator,
		validator:   validator,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxAttempts returns the per-item generation budget.
func (l *Loop) MaxAttempts() int {
	return l.maxAttempts
}

// RevisionItem is a whole-text work item.
type RevisionItem struct {
	ID      string
	Request types.GenerationRequest
}

// Revision is the outcome of a whole-text work item.
type Revision struct {
	WorkItem     string
	Text         string
	Attempts     int
	QualityScore int
	FailedOpen   bool
	// Dropped is set when every attempt was rejected. Text is empty then.
	Dropped bool
}

// Revise asks the generator for a revised full text and validates it.
// It returns a *GenerationFailure when the generator fails twice, and a
// dropped Revision when every attempt is rejected.
func (l *Loop) Revise(ctx context.Context, item RevisionItem) (*Revision, error) {
	id := itemID(item.ID)
	req := item.Request

	produce := func(ctx context.Context, guidance string) ([]candidate, error) {
		r := req
		r.PriorFeedback = guidance
		resp, err := l.generator.Generate(ctx, r)
		if err != nil {
			return nil, err
		}
		if resp == nil || strings.TrimSpace(resp.Text) == "" {
			return nil, errors.New("generator returned empty text")
		}
		return []candidate{{text: resp.Text, rationale: req.Directive.Goal}}, nil
	}

	accepted, attempts, err := l.run(ctx, id, req.CurrentText, req.Profile.Voice, produce)
	if err != nil {
		return nil, err
	}
	rev := &Revision{WorkItem: id, Attempts: attempts}
	if len(accepted) == 0 {
		rev.Dropped = true
		return rev, nil
	}
	rev.Text = accepted[0].text
	rev.QualityScore = accepted[0].verdict.QualityScore
	rev.FailedOpen = accepted[0].verdict.FailedOpen
	return rev, nil
}

// SuggestionItem is a passage-level work item.
type SuggestionItem struct {
	ID      string
	Request types.SuggestionRequest
}

// SuggestionResult holds the suggestions accepted for one passage.
type SuggestionResult struct {
	WorkItem string                     `json:"work_item"`
	Passage  string                     `json:"passage"`
	Accepted []types.AcceptedSuggestion `json:"accepted"`
	Attempts int                        `json:"attempts"`
	Dropped  bool                       `json:"dropped,omitempty"`
}

// Suggest asks the generator for rewrites of one passage and validates each
// independently. Only suggestions from the first attempt with any accepted
// candidate are returned; earlier attempts are discarded.
func (l *Loop) Suggest(ctx context.Context, item SuggestionItem) (*SuggestionResult, error) {
	id := itemID(item.ID)
	req := item.Request

	produce := func(ctx context.Context, guidance string) ([]candidate, error) {
		r := req
		r.PriorFeedback = guidance
		resp, err := l.generator.Suggest(ctx, r)
		if err != nil {
			return nil, err
		}
		if resp == nil || len(resp.Suggestions) == 0 {
			return nil, errors.New("generator returned no suggestions")
		}
		out := make([]candidate, 0, len(resp.Suggestions))
		for i := range resp.Suggestions {
			s := resp.Suggestions[i]
			if strings.TrimSpace(s.ProposedText) == "" {
				continue
			}
			out = append(out, candidate{text: s.ProposedText, rationale: s.Rationale, suggestion: &s})
		}
		if len(out) == 0 {
			return nil, errors.New("generator returned only empty suggestions")
		}
		return out, nil
	}

	accepted, attempts, err := l.run(ctx, id, req.Passage, req.Profile.Voice, produce)
	if err != nil {
		return nil, err
	}
	res := &SuggestionResult{WorkItem: id, Passage: req.Passage, Attempts: attempts}
	if len(accepted) == 0 {
		res.Dropped = true
		return res, nil
	}
	for _, a := range accepted {
		res.Accepted = append(res.Accepted, types.AcceptedSuggestion{
			Suggestion:   *a.suggestion,
			QualityScore: a.verdict.QualityScore,
			Attempt:      attempts,
			FailedOpen:   a.verdict.FailedOpen,
		})
	}
	return res, nil
}

type candidate struct {
	text       string
	rationale  string
	suggestion *types.CandidateSuggestion
}

type acceptedCandidate struct {
	candidate
	verdict Verdict
}

type produceFunc func(ctx context.Context, guidance string) ([]candidate, error)

// run is the shared retry cycle. Only the most recent rejection's guidance is
// passed to the next attempt. A generation error is retried once; the retry
// uses one of the attempt slots.
func (l *Loop) run(ctx context.Context, id, source, voice string, produce produceFunc) ([]acceptedCandidate, int, error) {
	var guidance string
	generationFailures := 0

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}

		cands, err := l.generate(ctx, produce, guidance)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, attempt, ctxErr
			}
			generationFailures++
			l.emit(AttemptEvent{WorkItem: id, Attempt: attempt, GenerationErr: err})
			if generationFailures > 1 || attempt == l.maxAttempts {
				l.logger.Warn("work item abandoned after generation failure",
					"work_item", id, "attempt", attempt, "error", err)
				return nil, attempt, &GenerationFailure{
					WorkItem: id,
					Attempt:  attempt,
					Message:  "generator failed after retry",
					Cause:    err,
				}
			}
			l.logger.Warn("generation failed, retrying",
				"work_item", id, "attempt", attempt, "error", err)
			continue
		}

		var accepted []acceptedCandidate
		for _, c := range cands {
			verdict := l.validator.Check(ctx, types.ValidationRequest{
				CandidateText:   c.text,
				Rationale:       c.rationale,
				SourcePassage:   source,
				VoiceDescriptor: voice,
				AttemptNumber:   attempt,
			})
			if err := ctx.Err(); err != nil {
				return nil, attempt, err
			}
			l.emit(AttemptEvent{
				WorkItem:     id,
				Attempt:      attempt,
				Accepted:     verdict.Accepted,
				FailedOpen:   verdict.FailedOpen,
				QualityScore: verdict.QualityScore,
			})
			if verdict.Accepted {
				accepted = append(accepted, acceptedCandidate{candidate: c, verdict: verdict})
				continue
			}
			guidance = verdict.Guidance
		}
		if len(accepted) > 0 {
			return accepted, attempt, nil
		}
		l.logger.Debug("candidate rejected",
			"work_item", id, "attempt", attempt, "guidance", guidance)
	}

	l.logger.Info("work item dropped after repeated rejection",
		"work_item", id, "attempts", l.maxAttempts)
	return nil, l.maxAttempts, nil
}

func (l *Loop) generate(ctx context.Context, produce produceFunc, guidance string) ([]candidate, error) {
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	return produce(ctx, guidance)
}

func (l *Loop) emit(ev AttemptEvent) {
	if l.onAttempt != nil {
		l.onAttempt(ev)
	}
}

func itemID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
