package types

// ContextCategoryDescriptions is the EvaluationRequest.Context key holding a
// map[string]string of rubric category descriptions.
const ContextCategoryDescriptions = "category_descriptions"

// EvaluationRequest is sent to the evaluation oracle.
type EvaluationRequest struct {
	Text          string         `json:"text"`
	RubricVersion string         `json:"rubric_version"`
	Categories    []string       `json:"categories"`
	Context       map[string]any `json:"context,omitempty"`
}

// EvaluatedCategory is one category as reported by the evaluation oracle.
type EvaluatedCategory struct {
	Name     string   `json:"name"`
	Score    float64  `json:"score_0_to_10"`
	Evidence []string `json:"evidence"`
	Notes    string   `json:"notes"`
}

// EvaluationResponse is the evaluation oracle's reply. Categories may arrive in any order.
type EvaluationResponse struct {
	Categories []EvaluatedCategory `json:"categories"`
	Flags      []string            `json:"flags"`
}

// Directive is the structured payload a strategy hands to the generator.
type Directive struct {
	Goal        string   `json:"goal" yaml:"goal"`
	Focus       string   `json:"focus" yaml:"focus"`
	Constraints []string `json:"constraints,omitempty" yaml:"constraints"`
	Avoid       []string `json:"avoid,omitempty" yaml:"avoid"`
}

// GenerationRequest asks the generator for one revised full text.
type GenerationRequest struct {
	CurrentText   string        `json:"current_text"`
	Profile       SourceProfile `json:"profile"`
	Directive     Directive     `json:"directive"`
	PriorFeedback string        `json:"prior_feedback,omitempty"`
	// PriorContext summarizes earlier iterations (scores and strategies) for the generator.
	PriorContext string `json:"prior_context,omitempty"`
}

// GenerationResponse is the generator's full-text reply.
type GenerationResponse struct {
	Text string `json:"text"`
}

// SuggestionRequest asks the generator for competing rewrites of one passage.
type SuggestionRequest struct {
	Passage       string        `json:"passage"`
	FullText      string        `json:"full_text"`
	Profile       SourceProfile `json:"profile"`
	Directive     Directive     `json:"directive"`
	PriorFeedback string        `json:"prior_feedback,omitempty"`
}

// SuggestionResponse is the generator's suggestion-mode reply.
type SuggestionResponse struct {
	Suggestions []CandidateSuggestion `json:"suggestions"`
}

// ValidationRequest is sent to the validation oracle for one candidate.
type ValidationRequest struct {
	CandidateText   string `json:"candidate_text"`
	Rationale       string `json:"rationale"`
	SourcePassage   string `json:"source_passage"`
	VoiceDescriptor string `json:"voice_descriptor"`
	AttemptNumber   int    `json:"attempt_number"`
}
