package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps a Client so that calls wait for a token bucket.
// Waiting honors context cancellation.
type RateLimited struct {
	Client
	limiter *rate.Limiter
}

// NewRateLimited limits client to requestsPerMinute calls with a burst of one.
// A non-positive rate returns the client unchanged.
func NewRateLimited(client Client, requestsPerMinute int) Client {
	if requestsPerMinute <= 0 {
		return client
	}
	return &RateLimited{
		Client:  client,
		limiter: rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
	}
}

// GenerateContent waits for the limiter, then delegates.
func (r *RateLimited) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.Client.GenerateContent(ctx, prompt, tier)
}

// GenerateJSON waits for the limiter, then delegates.
func (r *RateLimited) GenerateJSON(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	return r.Client.GenerateJSON(ctx, prompt, tier)
}
