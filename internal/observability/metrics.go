package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jonathan/essay-refiner/internal/refine"
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/types"
	"github.com/jonathan/essay-refiner/internal/validation"
)

const namespace = "essay_refiner"

// Metrics records refinement runs in Prometheus. It implements
// refine.MetricsCollector; ObserveAttempt plugs into validation.WithAttemptHook.
type Metrics struct {
	iterations   *prometheus.CounterVec
	composite    prometheus.Histogram
	rollbacks    *prometheus.CounterVec
	stops        *prometheus.CounterVec
	bestScore    prometheus.Histogram
	refinements  prometheus.Histogram
	attempts     *prometheus.CounterVec
	quality      prometheus.Histogram
	failOpen     prometheus.Counter
	generationKO prometheus.Counter
}

var _ refine.MetricsCollector = (*Metrics)(nil)

// NewMetrics registers the collectors with reg. A nil reg uses the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	scoreBuckets := []float64{10, 20, 30, 40, 50, 60, 70, 75, 80, 85, 90, 95, 100}

	return &Metrics{
		// Labels: strategy (empty for the baseline), outcome
		iterations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refine",
			Name:      "iterations_total",
			Help:      "Scored iterations by applied strategy and outcome",
		}, []string{"strategy", "outcome"}),
		composite: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refine",
			Name:      "composite_score",
			Help:      "Composite score of every scored snapshot",
			Buckets:   scoreBuckets,
		}),
		// Labels: tier (risk tier disabled by the regression)
		rollbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refine",
			Name:      "rollbacks_total",
			Help:      "Regressions that disabled a risk tier and rolled back to the best text",
		}, []string{"tier"}),
		// Labels: reason (converged, capped_out, exhausted, stagnant)
		stops: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "refine",
			Name:      "runs_total",
			Help:      "Finished runs by stop reason",
		}, []string{"reason"}),
		bestScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refine",
			Name:      "best_composite_score",
			Help:      "Best composite score of finished runs",
			Buckets:   scoreBuckets,
		}),
		refinements: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "refine",
			Name:      "refinements",
			Help:      "Refinement attempts per finished run",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		}),
		// Labels: result (accepted, rejected, generation_error)
		attempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "attempts_total",
			Help:      "Generate and validate attempts by result",
		}, []string{"result"}),
		quality: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "quality_score",
			Help:      "Quality score assigned to validated candidates",
			Buckets:   scoreBuckets,
		}),
		failOpen: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "fail_open_total",
			Help:      "Candidates accepted because the validation oracle was unavailable",
		}),
		generationKO: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "failures_total",
			Help:      "Generation oracle calls that returned an error",
		}),
	}
}

// RecordIteration counts one scored snapshot.
func (m *Metrics) RecordIteration(composite int, applied types.StrategyID, outcome strategy.Outcome) {
	m.iterations.WithLabelValues(string(applied), string(outcome)).Inc()
	m.composite.Observe(float64(composite))
}

// RecordRollback counts a regression that disabled tier.
func (m *Metrics) RecordRollback(tier types.RiskTier) {
	m.rollbacks.WithLabelValues(string(tier)).Inc()
}

// RecordStop counts a finished run.
func (m *Metrics) RecordStop(reason refine.StopReason, bestComposite, refinements int) {
	m.stops.WithLabelValues(string(reason)).Inc()
	m.bestScore.Observe(float64(bestComposite))
	m.refinements.Observe(float64(refinements))
}

// ObserveAttempt records one generate and validate attempt.
func (m *Metrics) ObserveAttempt(ev validation.AttemptEvent) {
	switch {
	case ev.GenerationErr != nil:
		m.attempts.WithLabelValues("generation_error").Inc()
		m.generationKO.Inc()
		return
	case ev.Accepted:
		m.attempts.WithLabelValues("accepted").Inc()
	default:
		m.attempts.WithLabelValues("rejected").Inc()
	}
	if ev.FailedOpen {
		m.failOpen.Inc()
	}
	m.quality.Observe(float64(ev.QualityScore))
}
