package refine

import (
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/types"
)

// Progress steps emitted by the controller.
const (
	StepScored            = "scored"
	StepStrategySelected  = "strategy_selected"
	StepCandidateAccepted = "candidate_accepted"
	StepWorkItemDropped   = "work_item_dropped"
	StepWorkItemAbandoned = "work_item_abandoned"
	StepRollback          = "rollback"
	StepStopped           = "stopped"
)

// ProgressEvent reports progress during a run.
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when run progress occurs.
type ProgressCallback func(event ProgressEvent)

// MetricsCollector receives run-level measurements.
type MetricsCollector interface {
	RecordIteration(composite int, applied types.StrategyID, outcome strategy.Outcome)
	RecordRollback(tier types.RiskTier)
	RecordStop(reason StopReason, bestComposite, refinements int)
}

// NoOpMetrics discards all measurements.
type NoOpMetrics struct{}

func (NoOpMetrics) RecordIteration(int, types.StrategyID, strategy.Outcome) {}
func (NoOpMetrics) RecordRollback(types.RiskTier)                           {}
func (NoOpMetrics) RecordStop(StopReason, int, int)                         {}
