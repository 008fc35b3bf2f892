package scoring

import (
	"fmt"
	"strings"
)

// ScoringFailure is raised when the evaluator's response is malformed or
// incomplete. It is fatal to the current iteration and no record is written for it.
type ScoringFailure struct {
	RubricVersion string
	Message       string
	Missing       []string
	Cause         error
}

func (e *ScoringFailure) Error() string {
	msg := fmt.Sprintf("scoring failure (rubric %s): %s", e.RubricVersion, e.Message)
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(" (missing: %s)", strings.Join(e.Missing, ", "))
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *ScoringFailure) Unwrap() error {
	return e.Cause
}
