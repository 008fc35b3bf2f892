package types

import "github.com/go-playground/validator/v10"

// SourceProfile holds the facts an essay is about. It is supplied once per run
// and never mutated by the refinement loop; only the text changes.
type SourceProfile struct {
	Role             string   `json:"role" yaml:"role" validate:"required"`
	Timeframe        string   `json:"timeframe,omitempty" yaml:"timeframe"`
	Achievements     []string `json:"achievements,omitempty" yaml:"achievements"`
	Challenges       []string `json:"challenges,omitempty" yaml:"challenges"`
	Relationships    []string `json:"relationships,omitempty" yaml:"relationships"`
	MeasurableImpact []string `json:"measurable_impact,omitempty" yaml:"measurable_impact"`
	// Voice is a short descriptor of the writer's voice, forwarded to the validation oracle.
	Voice string `json:"voice,omitempty" yaml:"voice"`
}

// Validate validates the SourceProfile using the validator.
func (p *SourceProfile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}
