package validation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonathan/essay-refiner/internal/types"
)

type oracleReply struct {
	result *types.ValidationResult
	err    error
}

type fakeOracle struct {
	mu       sync.Mutex
	replies  []oracleReply
	requests []types.ValidationRequest
}

func (f *fakeOracle) Validate(_ context.Context, req types.ValidationRequest) (*types.ValidationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.requests) > len(f.replies) {
		return nil, fmt.Errorf("unexpected validation call %d", len(f.requests))
	}
	r := f.replies[len(f.requests)-1]
	return r.result, r.err
}

// cancelingOracle cancels the caller's context mid-call, as a shutdown would.
type cancelingOracle struct {
	cancel context.CancelFunc
}

func (o cancelingOracle) Validate(_ context.Context, _ types.ValidationRequest) (*types.ValidationResult, error) {
	o.cancel()
	return nil, context.Canceled
}

func pass(score int) oracleReply {
	return oracleReply{result: &types.ValidationResult{IsValid: true, QualityScore: score}}
}

func reject(score int, guidance string) oracleReply {
	return oracleReply{result: &types.ValidationResult{IsValid: score >= 70, QualityScore: score, RetryGuidance: guidance}}
}

type genReply struct {
	text        string
	suggestions []types.CandidateSuggestion
	err         error
}

type fakeGenerator struct {
	mu          sync.Mutex
	replies     []genReply
	generateReq []types.GenerationRequest
	suggestReq  []types.SuggestionRequest
}

func (f *fakeGenerator) next() (genReply, error) {
	n := len(f.generateReq) + len(f.suggestReq)
	if n > len(f.replies) {
		return genReply{}, errors.New("unexpected generator call")
	}
	return f.replies[n-1], nil
}

func (f *fakeGenerator) Generate(_ context.Context, req types.GenerationRequest) (*types.GenerationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateReq = append(f.generateReq, req)
	r, err := f.next()
	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return &types.GenerationResponse{Text: r.text}, nil
}

func (f *fakeGenerator) Suggest(_ context.Context, req types.SuggestionRequest) (*types.SuggestionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.suggestReq = append(f.suggestReq, req)
	r, err := f.next()
	if err != nil {
		return nil, err
	}
	if r.err != nil {
		return nil, r.err
	}
	return &types.SuggestionResponse{Suggestions: r.suggestions}, nil
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.generateReq) + len(f.suggestReq)
}
