package validation

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/essay-refiner/internal/types"
)

func TestCheck_Verdicts(t *testing.T) {
	tests := []struct {
		name     string
		result   *types.ValidationResult
		accepted bool
	}{
		{"valid above threshold", &types.ValidationResult{IsValid: true, QualityScore: 75}, true},
		{"valid at threshold", &types.ValidationResult{IsValid: true, QualityScore: 70}, true},
		{"valid below threshold", &types.ValidationResult{IsValid: true, QualityScore: 69}, false},
		{"invalid with high score", &types.ValidationResult{IsValid: false, QualityScore: 95}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &fakeOracle{replies: []oracleReply{{result: tt.result}}}
			v := NewValidator(oracle)

			got := v.Check(context.Background(), types.ValidationRequest{CandidateText: "x"})
			assert.Equal(t, tt.accepted, got.Accepted)
			assert.Equal(t, tt.result.QualityScore, got.QualityScore)
			assert.False(t, got.FailedOpen)
			if !tt.accepted {
				assert.NotEmpty(t, got.Guidance)
			}
		})
	}
}

func TestCheck_FailsOpenOnOracleError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	oracle := &fakeOracle{replies: []oracleReply{{err: errors.New("connection reset")}}}
	v := NewValidator(oracle, WithValidatorLogger(logger))

	got := v.Check(context.Background(), types.ValidationRequest{CandidateText: "x", AttemptNumber: 2})

	assert.True(t, got.Accepted)
	assert.True(t, got.FailedOpen)
	assert.Equal(t, DefaultFailOpenScore, got.QualityScore)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestCheck_FailsOpenOnNilResult(t *testing.T) {
	v := NewValidator(&fakeOracle{replies: []oracleReply{{}}}, WithFailOpenScore(65))

	got := v.Check(context.Background(), types.ValidationRequest{})
	assert.True(t, got.Accepted)
	assert.Equal(t, 65, got.QualityScore)
}

func TestCheck_FailsOpenWithoutOracle(t *testing.T) {
	got := NewValidator(nil).Check(context.Background(), types.ValidationRequest{})
	assert.True(t, got.Accepted)
	assert.True(t, got.FailedOpen)
}

type slowOracle struct{}

func (slowOracle) Validate(ctx context.Context, _ types.ValidationRequest) (*types.ValidationResult, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestCheck_TimeoutFailsOpen(t *testing.T) {
	v := NewValidator(slowOracle{}, WithValidationTimeout(10*time.Millisecond))

	got := v.Check(context.Background(), types.ValidationRequest{})
	assert.True(t, got.Accepted)
	assert.True(t, got.FailedOpen)
}

func TestCheck_CanceledCallerDoesNotFailOpen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	v := NewValidator(cancelingOracle{cancel: cancel})

	got := v.Check(ctx, types.ValidationRequest{})
	assert.False(t, got.Accepted)
	assert.False(t, got.FailedOpen)
}

func TestCheck_CustomThreshold(t *testing.T) {
	oracle := &fakeOracle{replies: []oracleReply{pass(75)}}
	v := NewValidator(oracle, WithThreshold(80))

	assert.Equal(t, 80, v.Threshold())
	assert.False(t, v.Check(context.Background(), types.ValidationRequest{}).Accepted)
}

func TestGuidanceFor(t *testing.T) {
	t.Run("oracle guidance wins", func(t *testing.T) {
		got := guidanceFor(&types.ValidationResult{RetryGuidance: "  name the teammate  "}, 70)
		assert.Equal(t, "name the teammate", got)
	})

	t.Run("built from failures", func(t *testing.T) {
		got := guidanceFor(&types.ValidationResult{Failures: []types.ValidationFailure{
			{Category: "cliche", Severity: types.SeverityHigh, Message: "stock phrase", Evidence: "passion for learning"},
			{Category: "voice_drift", Severity: types.SeverityLow},
		}}, 70)
		assert.Contains(t, got, "Fix high issue: stock phrase (\"passion for learning\")")
		assert.Contains(t, got, "Fix low issue: voice_drift")
	})

	t.Run("fallback mentions scores", func(t *testing.T) {
		got := guidanceFor(&types.ValidationResult{QualityScore: 55}, 70)
		require.NotEmpty(t, got)
		assert.Contains(t, got, "55")
		assert.Contains(t, got, "70")
	})
}
