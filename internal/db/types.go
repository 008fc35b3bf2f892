package db

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/essay-refiner/internal/types"
)

// RunStatus constants
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents a refinement run record
type Run struct {
	ID            uuid.UUID        `json:"id"`
	Status        string           `json:"status"`
	RubricVersion string           `json:"rubric_version"`
	Provider      string           `json:"provider,omitempty"`
	TargetScore   int              `json:"target_score"`
	MaxIterations int              `json:"max_iterations"`
	InputText     string           `json:"input_text"`
	StopReason    *string          `json:"stop_reason,omitempty"`
	BestAttempt   *int             `json:"best_attempt,omitempty"`
	BestComposite *int             `json:"best_composite,omitempty"`
	Refinements   int              `json:"refinements"`
	DisabledTiers []types.RiskTier `json:"disabled_tiers,omitempty"`
	ErrorMessage  *string          `json:"error_message,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	CompletedAt   *time.Time       `json:"completed_at,omitempty"`
}

// RunInput represents input for creating a run
type RunInput struct {
	ID            uuid.UUID
	RubricVersion string
	Provider      string
	TargetScore   int
	MaxIterations int
	InputText     string
}

// RunCompletion holds the summary written when a run stops
type RunCompletion struct {
	StopReason    string
	BestAttempt   int
	BestComposite int
	Refinements   int
	DisabledTiers []types.RiskTier
}

// RunFilters holds optional filters for listing runs
type RunFilters struct {
	Status     string
	StopReason string
	Limit      int
}

// WorkItem represents a persisted generate and validate unit
type WorkItem struct {
	ID           uuid.UUID        `json:"id"`
	RunID        uuid.UUID        `json:"run_id"`
	Strategy     types.StrategyID `json:"strategy"`
	Status       string           `json:"status"`
	Attempts     int              `json:"attempts"`
	QualityScore int              `json:"quality_score"`
	FailedOpen   bool             `json:"failed_open"`
	CreatedAt    time.Time        `json:"created_at"`
}
