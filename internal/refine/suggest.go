package refine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/essay-refiner/internal/diagnosis"
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/types"
	"github.com/jonathan/essay-refiner/internal/validation"
)

// DefaultMaxPassages bounds the passages considered by one suggestion batch.
const DefaultMaxPassages = 3

// Suggester runs one passage-level work item.
type Suggester interface {
	Suggest(ctx context.Context, item validation.SuggestionItem) (*validation.SuggestionResult, error)
}

// SuggestRequest is the input of a suggestion batch.
type SuggestRequest struct {
	RunID   string
	Text    string
	Profile types.SourceProfile
	// Passages overrides the passages to rewrite. Empty means the text's paragraphs.
	Passages    []string
	MaxPassages int
}

// SuggestResult holds the accepted suggestions of a batch. Dropped and
// abandoned passages contribute nothing but are counted.
type SuggestResult struct {
	RunID     string                         `json:"run_id"`
	Composite int                            `json:"composite_score"`
	Scorecard *types.Scorecard               `json:"scorecard"`
	Diagnosis diagnosis.Status               `json:"diagnosis"`
	Category  string                         `json:"category,omitempty"`
	Strategy  types.StrategyID               `json:"strategy,omitempty"`
	Items     []*validation.SuggestionResult `json:"items"`
	Dropped   int                            `json:"dropped"`
	Abandoned int                            `json:"abandoned"`
}

// Suggest scores the text once, picks a strategy for its weakest category and
// asks for validated rewrites of each passage. Passages are processed in order.
func (c *Controller) Suggest(ctx context.Context, suggester Suggester, req SuggestRequest) (*SuggestResult, error) {
	if suggester == nil {
		return nil, errors.New("refine: suggester is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("refine: text is required")
	}
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	logger := c.opts.Logger.With("run_id", req.RunID)

	card, err := c.scorer.Score(ctx, req.Text, c.rubric)
	if err != nil {
		return nil, err
	}
	res := &SuggestResult{RunID: req.RunID, Composite: card.Composite(), Scorecard: card}

	selector := strategy.NewSelector(c.library, c.cfg.RegressionMargin)
	d := c.extractor.Diagnose(card, req.Text, selector)
	res.Diagnosis = d.Status
	st, ok := selector.Select(d)
	if !ok {
		logger.Info("no suggestion strategy applies", "diagnosis", d.Status)
		return res, nil
	}
	res.Category = d.Category
	res.Strategy = st.ID

	passages := req.Passages
	if len(passages) == 0 {
		passages = SplitPassages(req.Text)
	}
	limit := req.MaxPassages
	if limit <= 0 {
		limit = DefaultMaxPassages
	}
	if len(passages) > limit {
		passages = passages[:limit]
	}

	for _, passage := range passages {
		item, err := suggester.Suggest(ctx, validation.SuggestionItem{
			ID: uuid.NewString(),
			Request: types.SuggestionRequest{
				Passage:   passage,
				FullText:  req.Text,
				Profile:   req.Profile,
				Directive: st.Directive,
			},
		})
		if err != nil {
			var genErr *validation.GenerationFailure
			if !errors.As(err, &genErr) {
				return nil, err
			}
			res.Abandoned++
			logger.Warn("passage abandoned", "work_item", genErr.WorkItem, "error", err)
			continue
		}
		if item.Dropped {
			res.Dropped++
			continue
		}
		res.Items = append(res.Items, item)
	}

	c.emit(&run{id: req.RunID}, StepStopped, d.Category,
		fmt.Sprintf("%d passages with accepted suggestions, %d dropped, %d abandoned", len(res.Items), res.Dropped, res.Abandoned), res)
	return res, nil
}

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// SplitPassages splits text into trimmed, non-empty paragraphs.
func SplitPassages(text string) []string {
	var out []string
	for _, p := range paragraphBreak.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
