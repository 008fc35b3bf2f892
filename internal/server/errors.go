package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/essay-refiner/internal/llm"
	"github.com/jonathan/essay-refiner/internal/oracle"
	"github.com/jonathan/essay-refiner/internal/scoring"
)

// ErrNotFound indicates a requested resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnavailable indicates a feature that needs an unconfigured dependency
type ErrUnavailable struct {
	Feature string
}

func (e *ErrUnavailable) Error() string {
	return fmt.Sprintf("%s is not configured", e.Feature)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound    *ErrNotFound
		validation  *ErrValidation
		unavailable *ErrUnavailable
		scoreFail   *scoring.ScoringFailure
		decode      *oracle.DecodeError
		call        *oracle.CallError
		blocked     *llm.BlockedError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	case errors.As(err, &blocked):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &scoreFail), errors.As(err, &decode), errors.As(err, &call):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
