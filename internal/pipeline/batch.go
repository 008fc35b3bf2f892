package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/essay-refiner/internal/refine"
)

// BatchResult is the outcome of one run in a batch. Exactly one of Result and Err is set.
type BatchResult struct {
	Index  int            `json:"index"`
	Result *refine.Result `json:"result,omitempty"`
	Err    error          `json:"-"`
}

// RunBatch runs independent texts concurrently, at most limit at a time.
// A failed run does not cancel the others; results keep the input order.
func (e *Engine) RunBatch(ctx context.Context, inputs []RunOptions, limit int) []BatchResult {
	if limit <= 0 {
		limit = e.cfg.BatchConcurrency
	}
	if limit <= 0 {
		limit = 1
	}

	results := make([]BatchResult, len(inputs))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, in := range inputs {
		g.Go(func() error {
			res, err := e.Run(ctx, in)
			results[i] = BatchResult{Index: i, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}
