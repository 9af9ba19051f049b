package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/researchd/internal/checkpoint"
)

type fakeRunner struct {
	req   RunRequest
	runID string
	err   error
}

func (f *fakeRunner) StartRun(_ context.Context, req RunRequest) (string, error) {
	f.req = req
	if f.err != nil {
		return "", f.err
	}
	return f.runID, nil
}

type fakeSnapshots struct {
	snaps map[string]*checkpoint.Snapshot
	err   error
}

func (f *fakeSnapshots) Load(_ context.Context, runID string) (*checkpoint.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	snap, ok := f.snaps[runID]
	if !ok {
		return nil, checkpoint.ErrNotFound
	}
	return snap, nil
}

func (f *fakeSnapshots) List(_ context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	var runs []string
	for id := range f.snaps {
		runs = append(runs, id)
	}
	return runs, nil
}

func setupTestServer(t *testing.T, runner *fakeRunner, snapshots *fakeSnapshots) *Server {
	t.Helper()
	if runner == nil {
		runner = &fakeRunner{runID: "run-1"}
	}
	if snapshots == nil {
		snapshots = &fakeSnapshots{snaps: map[string]*checkpoint.Snapshot{}}
	}
	server, err := NewServer(runner, snapshots, zap.NewNop(), nil)
	require.NoError(t, err)
	return server
}

func TestNewServer(t *testing.T) {
	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{Host: "localhost", Port: 9292}
		server, err := NewServer(&fakeRunner{}, &fakeSnapshots{}, zap.NewNop(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.Equal(t, cfg, server.config)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(&fakeRunner{}, &fakeSnapshots{}, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 9292, server.config.Port)
	})

	t.Run("returns error when runner is nil", func(t *testing.T) {
		_, err := NewServer(nil, &fakeSnapshots{}, zap.NewNop(), nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "runner cannot be nil")
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(&fakeRunner{}, &fakeSnapshots{}, nil, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})
}

func TestHandleHealth(t *testing.T) {
	server := setupTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleStartRun(t *testing.T) {
	t.Run("starts a run", func(t *testing.T) {
		runner := &fakeRunner{runID: "run-42"}
		server := setupTestServer(t, runner, nil)

		body, _ := json.Marshal(RunRequest{Idea: "momentum rotation", AlphaOnly: true})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusAccepted, rec.Code)

		var resp RunResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "run-42", resp.RunID)
		assert.Equal(t, "momentum rotation", runner.req.Idea)
		assert.True(t, runner.req.AlphaOnly)
	})

	t.Run("rejects empty idea", func(t *testing.T) {
		server := setupTestServer(t, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader([]byte(`{}`)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		server := setupTestServer(t, nil, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader([]byte(`{bad`)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("runner failure is a 500", func(t *testing.T) {
		runner := &fakeRunner{err: errors.New("boom")}
		server := setupTestServer(t, runner, nil)

		body, _ := json.Marshal(RunRequest{Idea: "x"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleGetRun(t *testing.T) {
	t.Run("returns snapshot", func(t *testing.T) {
		snapshots := &fakeSnapshots{snaps: map[string]*checkpoint.Snapshot{
			"run-1": {RunID: "run-1", Stage: "criticism", Sequence: 4},
		}}
		server := setupTestServer(t, nil, snapshots)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/run-1", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var snap checkpoint.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		assert.Equal(t, "criticism", snap.Stage)
		assert.Equal(t, 4, snap.Sequence)
	})

	t.Run("unknown run is a 404", func(t *testing.T) {
		server := setupTestServer(t, nil, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/missing", nil)
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleListRuns(t *testing.T) {
	snapshots := &fakeSnapshots{snaps: map[string]*checkpoint.Snapshot{
		"run-1": {RunID: "run-1", Stage: "persist"},
	}}
	server := setupTestServer(t, nil, snapshots)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs", nil)
	rec := httptest.NewRecorder()
	server.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ListRunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"run-1"}, resp.Runs)
}
