package server

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jonathan/essay-refiner/internal/db"
	"github.com/jonathan/essay-refiner/internal/pipeline"
	"github.com/jonathan/essay-refiner/internal/refine"
	"github.com/jonathan/essay-refiner/internal/strategy"
	"github.com/jonathan/essay-refiner/internal/types"
)

type fakeEngine struct {
	result     *refine.Result
	score      *pipeline.ScoreResult
	suggest    *refine.SuggestResult
	err        error
	events     []refine.ProgressEvent
	lastRun    pipeline.RunOptions
	lastSugOpt pipeline.SuggestOptions
}

func (f *fakeEngine) Run(_ context.Context, opts pipeline.RunOptions) (*refine.Result, error) {
	f.lastRun = opts
	if f.err != nil {
		return nil, f.err
	}
	if opts.OnProgress != nil {
		for _, ev := range f.events {
			opts.OnProgress(ev)
		}
	}
	return f.result, nil
}

func (f *fakeEngine) Score(_ context.Context, _ string) (*pipeline.ScoreResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.score, nil
}

func (f *fakeEngine) Suggest(_ context.Context, opts pipeline.SuggestOptions) (*refine.SuggestResult, error) {
	f.lastSugOpt = opts
	if f.err != nil {
		return nil, f.err
	}
	return f.suggest, nil
}

func (f *fakeEngine) Library() *strategy.Library {
	return strategy.DefaultLibrary()
}

type fakeRuns struct {
	runs    map[uuid.UUID]*db.Run
	records map[uuid.UUID][]types.IterationRecord
	items   map[uuid.UUID][]db.WorkItem
	filters db.RunFilters
	err     error
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{
		runs:    make(map[uuid.UUID]*db.Run),
		records: make(map[uuid.UUID][]types.IterationRecord),
		items:   make(map[uuid.UUID][]db.WorkItem),
	}
}

func (f *fakeRuns) GetRun(_ context.Context, id uuid.UUID) (*db.Run, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.runs[id], nil
}

func (f *fakeRuns) ListRuns(_ context.Context, filters db.RunFilters) ([]db.Run, error) {
	f.filters = filters
	if f.err != nil {
		return nil, f.err
	}
	var out []db.Run
	for _, r := range f.runs {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRuns) ListIterationRecords(_ context.Context, id uuid.UUID) ([]types.IterationRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[id], nil
}

func (f *fakeRuns) ListWorkItems(_ context.Context, id uuid.UUID) ([]db.WorkItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.items[id], nil
}

var errBoom = errors.New("boom")
