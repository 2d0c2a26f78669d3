package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nbr23/github-log/internal/domain"
	"github.com/nbr23/github-log/internal/storage"
)

// Handlers contains HTTP handlers for the run-history API.
type Handlers struct {
	storage storage.Storage
}

// NewHandlers creates new API handlers.
func NewHandlers(store storage.Storage) *Handlers {
	return &Handlers{storage: store}
}

// RunSummary is the list-view shape of a run.
type RunSummary struct {
	ID         string     `json:"id"`
	Target     string     `json:"target"`
	Branch     string     `json:"branch"`
	Commit     string     `json:"commit,omitempty"`
	State      string     `json:"state"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StageView is the detail-view shape of a stage result.
type StageView struct {
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	Status     string     `json:"status"`
	ExitCode   int        `json:"exit_code"`
	Log        string     `json:"log,omitempty"`
	SkipReason string     `json:"skip_reason,omitempty"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RunDetail is the detail-view shape of a run.
type RunDetail struct {
	RunSummary
	Stages []StageView `json:"stages"`
}

// ListRunsResponse is the body of GET /api/runs.
type ListRunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

// Health handles GET /healthz.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListRuns handles GET /api/runs. Supports ?target= and ?limit=.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	opts := storage.ListOptions{
		Target: r.URL.Query().Get("target"),
		Limit:  50,
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = n
	}

	uow, err := h.storage.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer uow.Rollback()

	runs, err := uow.Runs().List(ctx, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ListRunsResponse{Runs: make([]RunSummary, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, summarize(run))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRun handles GET /api/runs/{id}.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	runID := chi.URLParam(r, "id")

	uow, err := h.storage.Begin(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer uow.Rollback()

	run, err := uow.Runs().Get(ctx, runID)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	detail := RunDetail{
		RunSummary: summarize(run),
		Stages:     make([]StageView, 0, len(run.Stages)),
	}
	for _, sr := range run.Stages {
		detail.Stages = append(detail.Stages, StageView{
			Name:       sr.Name,
			Kind:       string(sr.Kind),
			Status:     sr.Status.String(),
			ExitCode:   sr.ExitCode,
			Log:        sr.Log,
			SkipReason: sr.SkipReason,
			StartedAt:  sr.StartedAt,
			FinishedAt: sr.FinishedAt,
		})
	}
	writeJSON(w, http.StatusOK, detail)
}

func summarize(run *domain.Run) RunSummary {
	return RunSummary{
		ID:         run.ID,
		Target:     run.Target,
		Branch:     run.Branch,
		Commit:     run.Commit,
		State:      run.State.String(),
		Error:      run.Error,
		CreatedAt:  run.CreatedAt,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
