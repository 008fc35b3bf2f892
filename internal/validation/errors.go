// Package validation gates generated candidates behind the validation oracle
// and runs the bounded generate, validate, retry loop for one work item.
package validation

import "fmt"

// GenerationFailure means the generator could not produce a usable candidate
// for a work item even after one retry. It abandons the work item, not the run.
type GenerationFailure struct {
	WorkItem string
	Attempt  int
	Message  string
	Cause    error
}

func (e *GenerationFailure) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failure (work item %s, attempt %d): %s: %v", e.WorkItem, e.Attempt, e.Message, e.Cause)
	}
	return fmt.Sprintf("generation failure (work item %s, attempt %d): %s", e.WorkItem, e.Attempt, e.Message)
}

func (e *GenerationFailure) Unwrap() error {
	return e.Cause
}

// InfrastructureError wraps a failed validation oracle call. The validator logs
// it and fails open; it is never returned to callers.
type InfrastructureError struct {
	Message string
	Cause   error
}

func (e *InfrastructureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation infrastructure error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation infrastructure error: %s", e.Message)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Cause
}
