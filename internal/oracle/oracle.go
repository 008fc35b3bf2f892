package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/essay-refiner/internal/llm"
	"github.com/jonathan/essay-refiner/internal/prompts"
	"github.com/jonathan/essay-refiner/internal/schemas"
	"github.com/jonathan/essay-refiner/internal/types"
)

// Call names used in errors and logs.
const (
	CallEvaluation = "evaluation"
	CallGeneration = "generation"
	CallSuggestion = "suggestion"
	CallValidation = "validation"
)

// LLM serves all three oracle calls from one client. It is stateless and safe
// for concurrent use when the client is.
type LLM struct {
	client llm.Client
	logger *slog.Logger
}

// New creates an LLM-backed oracle.
func New(client llm.Client, logger *slog.Logger) *LLM {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLM{client: client, logger: logger}
}

// Evaluate scores a text against the requested rubric categories.
func (o *LLM) Evaluate(ctx context.Context, req types.EvaluationRequest) (*types.EvaluationResponse, error) {
	prompt, err := prompts.Render(prompts.EvaluationFile, prompts.KeyScoreEssay, map[string]string{
		"RubricVersion": req.RubricVersion,
		"Categories":    categoryList(req),
		"Context":       contextBlock(req.Context),
		"Text":          req.Text,
	})
	if err != nil {
		return nil, err
	}

	var resp types.EvaluationResponse
	if err := o.call(ctx, CallEvaluation, schemas.Evaluation, prompt, llm.TierStandard, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Generate produces one revised full text.
func (o *LLM) Generate(ctx context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	data := directiveData(req.Directive)
	data["Profile"] = profileBlock(req.Profile)
	data["PriorContext"] = section("Scores so far", req.PriorContext)
	data["PriorFeedback"] = section("The previous attempt was rejected. Fix this", req.PriorFeedback)
	data["CurrentText"] = req.CurrentText

	prompt, err := prompts.Render(prompts.GenerationFile, prompts.KeyReviseEssay, data)
	if err != nil {
		return nil, err
	}

	var resp types.GenerationResponse
	if err := o.call(ctx, CallGeneration, schemas.Generation, prompt, llm.TierAdvanced, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Suggest produces competing rewrites of one passage.
func (o *LLM) Suggest(ctx context.Context, req types.SuggestionRequest) (*types.SuggestionResponse, error) {
	data := directiveData(req.Directive)
	data["Profile"] = profileBlock(req.Profile)
	data["PriorFeedback"] = section("The previous suggestions were rejected. Fix this", req.PriorFeedback)
	data["FullText"] = req.FullText
	data["Passage"] = req.Passage

	prompt, err := prompts.Render(prompts.GenerationFile, prompts.KeySuggestRewrites, data)
	if err != nil {
		return nil, err
	}

	var resp types.SuggestionResponse
	if err := o.call(ctx, CallSuggestion, schemas.Suggestion, prompt, llm.TierAdvanced, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Validate checks one candidate against the authenticity and quality rubric.
func (o *LLM) Validate(ctx context.Context, req types.ValidationRequest) (*types.ValidationResult, error) {
	voice := req.VoiceDescriptor
	if voice == "" {
		voice = "not described"
	}
	prompt, err := prompts.Render(prompts.ValidationFile, prompts.KeyValidateCandidate, map[string]string{
		"Voice":         voice,
		"AttemptNumber": strconv.Itoa(req.AttemptNumber),
		"SourcePassage": req.SourcePassage,
		"CandidateText": req.CandidateText,
		"Rationale":     req.Rationale,
	})
	if err != nil {
		return nil, err
	}

	var resp types.ValidationResult
	if err := o.call(ctx, CallValidation, schemas.Validation, prompt, llm.TierLite, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// call sends prompt, checks the reply against schema and decodes it into out.
func (o *LLM) call(ctx context.Context, name, schema, prompt string, tier llm.ModelTier, out any) error {
	raw, err := o.client.GenerateJSON(ctx, prompt, tier)
	if err != nil {
		return &CallError{Call: name, Cause: err}
	}
	if err := schemas.Validate(schema, raw); err != nil {
		o.logger.Debug("oracle response rejected by schema", "call", name, "model", o.client.GetModel(tier), "error", err)
		return &DecodeError{Call: name, Raw: raw, Cause: err}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return &DecodeError{Call: name, Raw: raw, Cause: err}
	}
	return nil
}

func categoryList(req types.EvaluationRequest) string {
	desc, _ := req.Context[types.ContextCategoryDescriptions].(map[string]string)
	var b strings.Builder
	for _, name := range req.Categories {
		if d := desc[name]; d != "" {
			fmt.Fprintf(&b, "- %s: %s\n", name, d)
		} else {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// contextBlock renders caller context other than category descriptions.
func contextBlock(ctx map[string]any) string {
	keys := make([]string, 0, len(ctx))
	for k := range ctx {
		if k != types.ContextCategoryDescriptions {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("Additional context:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, ctx[k])
	}
	b.WriteString("\n")
	return b.String()
}

func directiveData(d types.Directive) map[string]string {
	return map[string]string{
		"Goal":        d.Goal,
		"Focus":       d.Focus,
		"Constraints": bullets("Constraints", d.Constraints),
		"Avoid":       bullets("Avoid", d.Avoid),
	}
}

func bullets(title string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return "- " + title + ": " + strings.Join(items, "; ") + "\n"
}

func section(title, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return title + ":\n" + body + "\n"
}

func profileBlock(p types.SourceProfile) string {
	var b strings.Builder
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "- %s: %s\n", label, value)
		}
	}
	list := func(label string, values []string) {
		if len(values) > 0 {
			fmt.Fprintf(&b, "- %s: %s\n", label, strings.Join(values, "; "))
		}
	}
	line("Role", p.Role)
	line("Timeframe", p.Timeframe)
	list("Achievements", p.Achievements)
	list("Challenges", p.Challenges)
	list("Relationships", p.Relationships)
	list("Measurable impact", p.MeasurableImpact)
	line("Voice", p.Voice)
	if b.Len() == 0 {
		return "- (no profile supplied)"
	}
	return strings.TrimRight(b.String(), "\n")
}
