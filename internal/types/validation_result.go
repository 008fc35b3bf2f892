package types

// Severity levels reported by the validation oracle.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// ValidationFailure is a single authenticity or quality failure found in a candidate.
type ValidationFailure struct {
	Category string `json:"category"`
	Severity string `json:"severity"`
	Message  string `json:"message,omitempty"`
	Evidence string `json:"evidence,omitempty"`
}

// ValidationResult is produced per validation call and consumed immediately by the retry loop.
type ValidationResult struct {
	IsValid       bool                `json:"is_valid"`
	QualityScore  int                 `json:"quality_score"` // 0-100
	Failures      []ValidationFailure `json:"failures,omitempty"`
	Strengths     []string            `json:"strengths,omitempty"`
	RetryGuidance string              `json:"retry_guidance,omitempty"`
}
