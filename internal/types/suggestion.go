package types

// CandidateSuggestion is one competing rewrite for a passage, produced before validation.
type CandidateSuggestion struct {
	SourceQuote  string `json:"quote"`
	ProposedText string `json:"proposed_text"`
	Rationale    string `json:"rationale"`
	ApproachType string `json:"approach_type"`
}

// AcceptedSuggestion pairs a suggestion with the validation verdict that let it through.
type AcceptedSuggestion struct {
	Suggestion   CandidateSuggestion `json:"suggestion"`
	QualityScore int                 `json:"quality_score"`
	Attempt      int                 `json:"attempt"`
	FailedOpen   bool                `json:"failed_open,omitempty"`
}
