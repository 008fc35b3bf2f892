package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/essay-refiner/internal/refine"
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/types"
	"github.com/jonathan/essay-refiner/internal/validation"
)

// counterTotal sums every series of the named counter family.
func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	return 0
}

func histogramCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	return 0
}

func TestMetrics_RunLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordIteration(60, "", strategy.NotTried)
	m.RecordIteration(65, strategy.AddNamedIndividual, strategy.Improved)
	m.RecordRollback(types.RiskBold)
	m.RecordStop(refine.CappedOut, 81, 5)

	assert.Equal(t, 2.0, counterTotal(t, reg, "essay_refiner_refine_iterations_total"))
	assert.Equal(t, uint64(2), histogramCount(t, reg, "essay_refiner_refine_composite_score"))
	assert.Equal(t, 1.0, counterTotal(t, reg, "essay_refiner_refine_rollbacks_total"))
	assert.Equal(t, 1.0, counterTotal(t, reg, "essay_refiner_refine_runs_total"))
	assert.Equal(t, uint64(1), histogramCount(t, reg, "essay_refiner_refine_best_composite_score"))
}

func TestMetrics_ObserveAttempt(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveAttempt(validation.AttemptEvent{Attempt: 1, QualityScore: 50})
	m.ObserveAttempt(validation.AttemptEvent{Attempt: 2, Accepted: true, FailedOpen: true, QualityScore: 70})
	m.ObserveAttempt(validation.AttemptEvent{Attempt: 3, GenerationErr: errors.New("boom")})

	assert.Equal(t, 3.0, counterTotal(t, reg, "essay_refiner_validation_attempts_total"))
	assert.Equal(t, 1.0, counterTotal(t, reg, "essay_refiner_validation_fail_open_total"))
	assert.Equal(t, 1.0, counterTotal(t, reg, "essay_refiner_generation_failures_total"))
	assert.Equal(t, uint64(2), histogramCount(t, reg, "essay_refiner_validation_quality_score"))
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
