package refine

import (
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/types"
)

// StopReason is the terminal state of a run.
type StopReason string

const (
	// Converged means the target composite was reached.
	Converged StopReason = "converged"
	// CappedOut means the refinement budget was spent.
	CappedOut StopReason = "capped_out"
	// Exhausted means no gap is left or no strategy qualifies.
	Exhausted StopReason = "exhausted"
	// Stagnant means the composite did not improve over the stagnation window.
	Stagnant StopReason = "stagnant"
)

// Work item outcomes recorded in a Result.
const (
	WorkItemAccepted  = "accepted"
	WorkItemDropped   = "dropped"
	WorkItemAbandoned = "abandoned"
)

// WorkItem summarizes one generate and validate unit of a run.
type WorkItem struct {
	ID           string           `json:"id"`
	Strategy     types.StrategyID `json:"strategy"`
	Status       string           `json:"status"`
	Attempts     int              `json:"attempts"`
	QualityScore int              `json:"quality_score,omitempty"`
	FailedOpen   bool             `json:"failed_open,omitempty"`
}

// StrategyOutcome is a strategy's final state within a run.
type StrategyOutcome struct {
	ID      types.StrategyID `json:"id"`
	Outcome strategy.Outcome `json:"outcome"`
}

// Result is what a run returns: the best record seen and the full history.
type Result struct {
	RunID         string                  `json:"run_id,omitempty"`
	StopReason    StopReason              `json:"stop_reason"`
	Best          types.IterationRecord   `json:"best"`
	Records       []types.IterationRecord `json:"records"`
	Refinements   int                     `json:"refinements"`
	WorkItems     []WorkItem              `json:"work_items,omitempty"`
	Strategies    []StrategyOutcome       `json:"strategies,omitempty"`
	DisabledTiers []types.RiskTier        `json:"disabled_tiers,omitempty"`
}

// BestScorecard rebuilds the scorecard of the best record.
func (r *Result) BestScorecard(rubricVersion string) *types.Scorecard {
	return r.Best.Scorecard(rubricVersion)
}
