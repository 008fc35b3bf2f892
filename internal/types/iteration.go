package types

import "time"

// StrategyID identifies a corrective strategy from the closed strategy library.
type StrategyID string

// RiskTier classifies how aggressive a strategy's rewrite is.
type RiskTier string

// Risk tiers, ordered from least to most aggressive.
const (
	RiskSafe     RiskTier = "safe"
	RiskModerate RiskTier = "moderate"
	RiskBold     RiskTier = "bold"
)

// IterationRecord is one entry of the append-only iteration trace.
// AttemptIndex 0 is the baseline scoring of the input text.
type IterationRecord struct {
	AttemptIndex    int             `json:"attempt_index"`
	Text            string          `json:"text_snapshot"`
	CompositeScore  int             `json:"composite_score"`
	CategoryScores  []CategoryScore `json:"category_scores"`
	Flags           []string        `json:"flags,omitempty"`
	StrategyApplied StrategyID      `json:"strategy_applied,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// Scorecard rebuilds the scorecard the record was produced from.
func (r *IterationRecord) Scorecard(rubricVersion string) *Scorecard {
	return &Scorecard{
		RubricVersion: rubricVersion,
		Categories:    r.CategoryScores,
		Flags:         r.Flags,
	}
}
