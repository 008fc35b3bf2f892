package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/essay-refiner/internal/db"
	"github.com/jonathan/essay-refiner/internal/pipeline"
	"github.com/jonathan/essay-refiner/internal/types"
)

// maxBodyBytes caps request bodies; essays are a few kilobytes.
const maxBodyBytes = 1 << 20

// RefineRequest represents a request to refine an essay
type RefineRequest struct {
	Text    string              `json:"text"`
	Profile types.SourceProfile `json:"profile"`
}

// ScoreRequest represents a request to score an essay once
type ScoreRequest struct {
	Text string `json:"text"`
}

// SuggestRequest represents a request for passage suggestions
type SuggestRequest struct {
	Text        string              `json:"text"`
	Profile     types.SourceProfile `json:"profile"`
	Passages    []string            `json:"passages,omitempty"`
	MaxPassages int                 `json:"max_passages,omitempty"`
}

// RunResponse is the body of GET /runs/{id}
type RunResponse struct {
	Run       *db.Run       `json:"run"`
	WorkItems []db.WorkItem `json:"work_items"`
}

// decode reads a JSON body into v and checks the essay text is present.
func decode(w http.ResponseWriter, r *http.Request, v any, text func() string) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	if strings.TrimSpace(text()) == "" {
		return &ErrValidation{Field: "text", Message: "text is required"}
	}
	return nil
}

// handleRefine runs a refinement synchronously and returns the result
func (s *Server) handleRefine(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if err := decode(w, r, &req, func() string { return req.Text }); err != nil {
		s.errResponse(w, err)
		return
	}

	result, err := s.engine.Run(r.Context(), pipeline.RunOptions{Text: req.Text, Profile: req.Profile})
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleRefineStream runs a refinement and streams progress events over SSE
func (s *Server) handleRefineStream(w http.ResponseWriter, r *http.Request) {
	var req RefineRequest
	if err := decode(w, r, &req, func() string { return req.Text }); err != nil {
		s.errResponse(w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.engine.Run(r.Context(), pipeline.RunOptions{
		Text:       req.Text,
		Profile:    req.Profile,
		OnProgress: sse.WriteProgress,
	})
	if err != nil {
		s.logger.Warn("streamed run failed", "error", err)
		sse.WriteError(err.Error())
		return
	}

	sse.WriteEvent(EventResult, result) //nolint:errcheck
	sse.WriteComplete(result.RunID, result.StopReason)
}

// handleScore scores a text once
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := decode(w, r, &req, func() string { return req.Text }); err != nil {
		s.errResponse(w, err)
		return
	}

	result, err := s.engine.Score(r.Context(), req.Text)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// handleSuggest returns validated passage rewrites
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := decode(w, r, &req, func() string { return req.Text }); err != nil {
		s.errResponse(w, err)
		return
	}

	result, err := s.engine.Suggest(r.Context(), pipeline.SuggestOptions{
		Text:        req.Text,
		Profile:     req.Profile,
		Passages:    req.Passages,
		MaxPassages: req.MaxPassages,
	})
	if err != nil {
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// runID parses the {id} path value
func runID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, &ErrValidation{Field: "id", Message: "invalid run ID"}
	}
	return id, nil
}

// handleListRuns lists persisted runs with optional status, stop_reason and limit filters
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.errResponse(w, &ErrUnavailable{Feature: "run storage"})
		return
	}

	q := r.URL.Query()
	filters := db.RunFilters{Status: q.Get("status"), StopReason: q.Get("stop_reason")}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			s.errResponse(w, &ErrValidation{Field: "limit", Message: "must be a non-negative integer"})
			return
		}
		filters.Limit = limit
	}

	runs, err := s.runs.ListRuns(r.Context(), filters)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetRun returns a persisted run and its work items
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.errResponse(w, &ErrUnavailable{Feature: "run storage"})
		return
	}
	id, err := runID(r)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	run, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if run == nil {
		s.errResponse(w, &ErrNotFound{Resource: "run", ID: id.String()})
		return
	}

	items, err := s.runs.ListWorkItems(r.Context(), id)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if items == nil {
		items = []db.WorkItem{}
	}
	s.jsonResponse(w, http.StatusOK, RunResponse{Run: run, WorkItems: items})
}

// handleRunIterations returns the iteration trace of a persisted run
func (s *Server) handleRunIterations(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.errResponse(w, &ErrUnavailable{Feature: "run storage"})
		return
	}
	id, err := runID(r)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	records, err := s.runs.ListIterationRecords(r.Context(), id)
	if err != nil {
		s.errResponse(w, err)
		return
	}
	if len(records) == 0 {
		run, err := s.runs.GetRun(r.Context(), id)
		if err == nil && run == nil {
			err = &ErrNotFound{Resource: "run", ID: id.String()}
		}
		if err != nil {
			s.errResponse(w, err)
			return
		}
		records = []types.IterationRecord{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"run_id": id, "iterations": records})
}

// handleStrategies lists the strategy library in selection order
func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{"strategies": s.engine.Library().All()})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
