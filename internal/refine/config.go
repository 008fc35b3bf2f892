package refine

import (
	"fmt"

	"github.com/jonathan/essay-refiner/internal/diagnosis"
	"github.com/jonathan/essay-refiner/internal/strategy"
)

// Defaults for a refinement run.
const (
	DefaultTargetScore      = 85
	DefaultMaxIterations    = 5
	DefaultStagnationWindow = 3
)

// Config holds the knobs of one refinement run: target, budget and stop rules.
type Config struct {
	TargetScore      int     `json:"target_score"`
	MaxIterations    int     `json:"max_iterations"`
	StagnationWindow int     `json:"stagnation_window"`
	RegressionMargin int     `json:"regression_margin"`
	GoodEnoughFloor  float64 `json:"good_enough_floor"`
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		TargetScore:      DefaultTargetScore,
		MaxIterations:    DefaultMaxIterations,
		StagnationWindow: DefaultStagnationWindow,
		RegressionMargin: strategy.DefaultRegressionMargin,
		GoodEnoughFloor:  diagnosis.DefaultFloor,
	}
}

// Validate checks that the configuration can drive a run.
func (c Config) Validate() error {
	if c.TargetScore < 0 || c.TargetScore > 100 {
		return fmt.Errorf("target_score must be within [0,100], got %d", c.TargetScore)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.StagnationWindow < 1 {
		return fmt.Errorf("stagnation_window must be at least 1, got %d", c.StagnationWindow)
	}
	if c.RegressionMargin < 0 {
		return fmt.Errorf("regression_margin must not be negative, got %d", c.RegressionMargin)
	}
	if c.GoodEnoughFloor <= 0 || c.GoodEnoughFloor > 10 {
		return fmt.Errorf("good_enough_floor must be within (0,10], got %g", c.GoodEnoughFloor)
	}
	return nil
}
