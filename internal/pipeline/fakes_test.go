package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/essay-refiner/internal/db"
	"github.com/jonathan/essay-refiner/internal/llm"
	"github.com/jonathan/essay-refiner/internal/rubric"
	"github.com/jonathan/essay-refiner/internal/types"
)

// hangingClient blocks every call until its context ends.
type hangingClient struct{}

func (hangingClient) GenerateContent(ctx context.Context, _ string, _ llm.ModelTier) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func (c hangingClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return c.GenerateContent(ctx, prompt, tier)
}

func (hangingClient) GetModel(tier llm.ModelTier) string { return "hang-" + string(tier) }

func (hangingClient) Close() error { return nil }

// fakeClient answers every oracle call by tier. Evaluations pop raw scores
// from a queue and repeat the last one once it is empty.
type fakeClient struct {
	mu          sync.Mutex
	scores      []float64
	quality     int
	evalCalls   int
	genCalls    int
	validCalls  int
	suggestCall int
	closed      bool
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	return f.GenerateJSON(ctx, prompt, tier)
}

func (f *fakeClient) GenerateJSON(_ context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch tier {
	case llm.TierStandard:
		f.evalCalls++
		score := 5.0
		if len(f.scores) > 0 {
			score = f.scores[0]
			if len(f.scores) > 1 {
				f.scores = f.scores[1:]
			}
		}
		return evaluationJSON(score), nil
	case llm.TierLite:
		f.validCalls++
		return marshal(map[string]any{"is_valid": f.quality >= 70, "quality_score": f.quality}), nil
	case llm.TierAdvanced:
		if strings.Contains(prompt, `"suggestions"`) {
			f.suggestCall++
			return marshal(map[string]any{"suggestions": []map[string]string{{
				"quote":         "I learned a lot.",
				"proposed_text": "I stopped mistaking silence for agreement.",
				"rationale":     "names the shift",
				"approach_type": "reflection",
			}}}), nil
		}
		f.genCalls++
		return marshal(map[string]string{"text": "Coach Alvarez handed me the clipboard and walked away."}), nil
	}
	return "", errors.New("unexpected tier")
}

func (f *fakeClient) GetModel(tier llm.ModelTier) string { return "fake-" + string(tier) }

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func evaluationJSON(raw float64) string {
	cats := make([]map[string]any, 0)
	for _, name := range rubric.Default().Names() {
		cats = append(cats, map[string]any{"name": name, "score_0_to_10": raw})
	}
	return marshal(map[string]any{"categories": cats})
}

func marshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}

// fakeStore records what a run persisted.
type fakeStore struct {
	mu          sync.Mutex
	createErr   error
	created     []uuid.UUID
	records     map[uuid.UUID][]types.IterationRecord
	workItems   []db.WorkItem
	completions map[uuid.UUID]*db.RunCompletion
	failures    map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:     make(map[uuid.UUID][]types.IterationRecord),
		completions: make(map[uuid.UUID]*db.RunCompletion),
		failures:    make(map[uuid.UUID]string),
	}
}

func (s *fakeStore) CreateRun(_ context.Context, input *db.RunInput) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return uuid.Nil, s.createErr
	}
	s.created = append(s.created, input.ID)
	return input.ID, nil
}

func (s *fakeStore) SaveIterationRecord(_ context.Context, runID uuid.UUID, rec *types.IterationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[runID] = append(s.records[runID], *rec)
	return nil
}

func (s *fakeStore) SaveWorkItem(_ context.Context, item *db.WorkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workItems = append(s.workItems, *item)
	return nil
}

func (s *fakeStore) CompleteRun(_ context.Context, runID uuid.UUID, c *db.RunCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completions[runID] = c
	return nil
}

func (s *fakeStore) FailRun(_ context.Context, runID uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[runID] = message
	return nil
}
