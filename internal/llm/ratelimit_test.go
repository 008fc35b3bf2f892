package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	calls int
}

func (s *stubClient) GenerateContent(context.Context, string, ModelTier) (string, error) {
	s.calls++
	return "text", nil
}

func (s *stubClient) GenerateJSON(context.Context, string, ModelTier) (string, error) {
	s.calls++
	return "{}", nil
}

func (s *stubClient) GetModel(ModelTier) string { return "stub" }
func (s *stubClient) Close() error              { return nil }

func TestNewRateLimited_DisabledReturnsClient(t *testing.T) {
	stub := &stubClient{}
	assert.Same(t, stub, NewRateLimited(stub, 0))
}

func TestRateLimited_Delegates(t *testing.T) {
	stub := &stubClient{}
	c := NewRateLimited(stub, 600)

	out, err := c.GenerateJSON(context.Background(), "p", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, "{}", out)
	assert.Equal(t, "stub", c.GetModel(TierLite))
	assert.Equal(t, 1, stub.calls)
}

func TestRateLimited_HonorsCancellation(t *testing.T) {
	stub := &stubClient{}
	c := NewRateLimited(stub, 1)

	// The first call takes the only burst token.
	_, err := c.GenerateContent(context.Background(), "p", TierLite)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.GenerateContent(ctx, "p", TierLite)
	assert.Error(t, err)
	assert.Equal(t, 1, stub.calls)
}
