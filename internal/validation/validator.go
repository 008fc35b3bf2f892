package validation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/essay-refiner/internal/types"
)

// Defaults for the validation gate.
const (
	DefaultThreshold     = 70
	DefaultFailOpenScore = 70
	DefaultMaxAttempts   = 3
)

// Oracle is the validation call.
type Oracle interface {
	Validate(ctx context.Context, req types.ValidationRequest) (*types.ValidationResult, error)
}

// Verdict is the validator's decision on one candidate.
type Verdict struct {
	Accepted     bool
	QualityScore int
	// FailedOpen is set when the oracle call failed and the candidate was accepted by default.
	FailedOpen bool
	// Guidance is the retry guidance to carry into the next generation call.
	Guidance string
	Failures []types.ValidationFailure
}

// Validator checks candidates against the validation oracle. It holds no
// state across calls.
type Validator struct {
	oracle        Oracle
	threshold     int
	failOpenScore int
	timeout       time.Duration
	logger        *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithThreshold sets the minimum accepted quality score.
func WithThreshold(n int) ValidatorOption {
	return func(v *Validator) { v.threshold = n }
}

// WithFailOpenScore sets the quality score assigned when the oracle is unavailable.
func WithFailOpenScore(n int) ValidatorOption {
	return func(v *Validator) { v.failOpenScore = n }
}

// WithValidationTimeout bounds each oracle call. Zero means no timeout.
func WithValidationTimeout(d time.Duration) ValidatorOption {
	return func(v *Validator) { v.timeout = d }
}

// WithValidatorLogger sets the logger used for fail-open warnings.
func WithValidatorLogger(l *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// NewValidator creates a validator backed by oracle.
func NewValidator(oracle Oracle, opts ...ValidatorOption) *Validator {
	v := &Validator{
		oracle:        oracle,
		threshold:     DefaultThreshold,
		failOpenScore: DefaultFailOpenScore,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Threshold returns the minimum accepted quality score.
func (v *Validator) Threshold() int {
	return v.threshold
}

// Check validates one candidate. Oracle failures never reject a candidate:
// the candidate is accepted with the fail-open score and a warning is logged.
// A canceled caller context is not an oracle failure and yields a rejection.
func (v *Validator) Check(ctx context.Context, req types.ValidationRequest) Verdict {
	res, err := v.call(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return Verdict{}
		}
		v.logger.Warn("validation unavailable, accepting candidate",
			"attempt", req.AttemptNumber,
			"quality_score", v.failOpenScore,
			"error", err)
		return Verdict{Accepted: true, QualityScore: v.failOpenScore, FailedOpen: true}
	}

	accepted := res.IsValid && res.QualityScore >= v.threshold
	verdict := Verdict{
		Accepted:     accepted,
		QualityScore: res.QualityScore,
		Failures:     res.Failures,
	}
	if !accepted {
		verdict.Guidance = guidanceFor(res, v.threshold)
	}
	return verdict
}

func (v *Validator) call(ctx context.Context, req types.ValidationRequest) (*types.ValidationResult, error) {
	if v.oracle == nil {
		return nil, &InfrastructureError{Message: "no validation oracle configured"}
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}
	res, err := v.oracle.Validate(ctx, req)
	if err != nil {
		return nil, &InfrastructureError{Message: "validation call failed", Cause: err}
	}
	if res == nil {
		return nil, &InfrastructureError{Message: "validation returned no result"}
	}
	return res, nil
}

// guidanceFor prefers the oracle's own guidance and otherwise summarizes the failures.
func guidanceFor(res *types.ValidationResult, threshold int) string {
	if g := strings.TrimSpace(res.RetryGuidance); g != "" {
		return g
	}
	var parts []string
	for _, f := range res.Failures {
		msg := f.Message
		if msg == "" {
			msg = f.Category
		}
		if f.Evidence != "" {
			msg += " (\"" + f.Evidence + "\")"
		}
		parts = append(parts, "Fix "+f.Severity+" issue: "+msg)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Previous attempt scored %d, below the bar of %d. Make the revision more specific and truer to the writer's voice.", res.QualityScore, threshold)
	}
	return strings.Join(parts, "\n")
}
