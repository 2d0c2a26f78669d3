package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbr23/github-log/internal/domain"
	"github.com/nbr23/github-log/internal/storage/sqlite"
)

func newTestServer(t *testing.T) (*Server, *sqlite.SQLiteStorage) {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "ghlog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(":0", st, logger), st
}

func insertRun(t *testing.T, st *sqlite.SQLiteStorage, branch string, state domain.RunState) *domain.Run {
	t.Helper()
	p := &domain.Pipeline{
		Target: "github.com/nbr23/github-log",
		Stages: []domain.Stage{
			{Name: "checkout", Kind: domain.StageKindCheckout},
			{Name: "lint", Kind: domain.StageKindCommand, Command: "ghlog-lint ./..."},
		},
	}
	run := domain.NewRun(p, branch)
	if state != domain.RunStatePending {
		require.NoError(t, run.SetState(domain.RunStateRunning))
	}
	if state.IsFinal() {
		require.NoError(t, run.SetState(state))
	}

	ctx := context.Background()
	uow, err := st.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Runs().Create(ctx, run))
	require.NoError(t, uow.Commit())
	return run
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestListRuns(t *testing.T) {
	srv, st := newTestServer(t)
	insertRun(t, st, "main", domain.RunStateSucceeded)
	insertRun(t, st, "dev", domain.RunStateFailed)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ListRunsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Runs, 2)
}

func TestListRunsRejectsBadLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs?limit=zero", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRun(t *testing.T) {
	srv, st := newTestServer(t)
	run := insertRun(t, st, "main", domain.RunStateSucceeded)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var detail RunDetail
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&detail))
	assert.Equal(t, run.ID, detail.ID)
	assert.Equal(t, "SUCCEEDED", detail.State)
	require.Len(t, detail.Stages, 2)
	assert.Equal(t, "checkout", detail.Stages[0].Name)
}

func TestGetMissingRunReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
