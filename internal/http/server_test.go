package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/store"
	"github.com/fyrsmithlabs/thoughtd/internal/telemetry"
	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

func newTestStore(t *testing.T, dir string) *store.Store {
	t.Helper()
	s, err := store.New(&store.Config{
		Dir:            dir,
		DefaultProject: "default",
		LockTimeout:    time.Second,
	}, nil)
	require.NoError(t, err)
	return s
}

func addThought(t *testing.T, s *store.Store, project string, n int, stage thought.Stage) {
	t.Helper()
	th, err := thought.New(thought.Params{
		Content:    fmt.Sprintf("thought %d", n),
		Number:     n,
		Total:      3,
		NextNeeded: n < 3,
		Stage:      stage,
		Tags:       []string{"core"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Add(context.Background(), th, project))
}

func setupTestServer(t *testing.T, opts ...Option) (*Server, *store.Store) {
	t.Helper()
	st := newTestStore(t, t.TempDir())
	server, err := NewServer(st, zap.NewNop(), &Config{Host: "localhost", Port: 9091, Version: "1.2.3"}, opts...)
	require.NoError(t, err)
	return server, st
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	st := newTestStore(t, t.TempDir())

	t.Run("creates server with valid config", func(t *testing.T) {
		cfg := &Config{Host: "localhost", Port: 9999}
		server, err := NewServer(st, zap.NewNop(), cfg)
		require.NoError(t, err)
		assert.NotNil(t, server.Echo())
		assert.Equal(t, cfg, server.config)
	})

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(st, zap.NewNop(), nil)
		require.NoError(t, err)
		assert.Equal(t, "localhost", server.config.Host)
		assert.Equal(t, 9091, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(st, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when store is nil", func(t *testing.T) {
		_, err := NewServer(nil, zap.NewNop(), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "thought store cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("ok without telemetry", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rec := get(t, server, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "1.2.3", resp.Version)
		assert.Nil(t, resp.Telemetry)
	})

	t.Run("degraded telemetry", func(t *testing.T) {
		server, _ := setupTestServer(t, WithTelemetryHealth(func() telemetry.HealthStatus {
			return telemetry.HealthStatus{Healthy: true, Degraded: true}
		}))

		rec := get(t, server, "/health")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp.Status)
		require.NotNil(t, resp.Telemetry)
		assert.True(t, resp.Telemetry.Degraded)
	})
}

func TestHandleProjects(t *testing.T) {
	dir := t.TempDir()

	// A project persisted by another instance is listed but not loaded.
	other := newTestStore(t, dir)
	addThought(t, other, "beta", 1, thought.StageScoping)

	st := newTestStore(t, dir)
	addThought(t, st, "alpha", 1, thought.StageScoping)
	addThought(t, st, "alpha", 2, thought.StageTesting)

	server, err := NewServer(st, zap.NewNop(), nil)
	require.NoError(t, err)

	rec := get(t, server, "/api/v1/projects")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ProjectsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "default", resp.Default)
	require.Len(t, resp.Projects, 2)

	assert.Equal(t, "alpha", resp.Projects[0].ID)
	assert.True(t, resp.Projects[0].Loaded)
	require.NotNil(t, resp.Projects[0].Thoughts)
	assert.Equal(t, 2, *resp.Projects[0].Thoughts)

	assert.Equal(t, "beta", resp.Projects[1].ID)
	assert.False(t, resp.Projects[1].Loaded)
	assert.Nil(t, resp.Projects[1].Thoughts)
}

func TestHandleThoughts(t *testing.T) {
	server, st := setupTestServer(t)
	addThought(t, st, "alpha", 1, thought.StageScoping)
	addThought(t, st, "alpha", 2, thought.StageTesting)
	addThought(t, st, "alpha", 3, thought.StageTesting)

	t.Run("all thoughts", func(t *testing.T) {
		rec := get(t, server, "/api/v1/projects/alpha/thoughts")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ThoughtsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "alpha", resp.Project)
		assert.Empty(t, resp.Stage)
		assert.Equal(t, 3, resp.Count)
		assert.Equal(t, "thought 1", resp.Thoughts[0].Thought)
	})

	t.Run("filtered by stage alias", func(t *testing.T) {
		rec := get(t, server, "/api/v1/projects/alpha/thoughts?stage=qa")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ThoughtsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Testing", resp.Stage)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("unknown stage", func(t *testing.T) {
		rec := get(t, server, "/api/v1/projects/alpha/thoughts?stage=deploy")
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "unknown stage")
	})

	t.Run("unknown project is empty", func(t *testing.T) {
		rec := get(t, server, "/api/v1/projects/nobody/thoughts")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ThoughtsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Count)
		assert.NotNil(t, resp.Thoughts)
	})
}

func TestHandleSummary(t *testing.T) {
	server, st := setupTestServer(t)

	rec := get(t, server, "/api/v1/projects/alpha/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"summary": "No thoughts recorded yet"}`, rec.Body.String())

	addThought(t, st, "alpha", 1, thought.StageScoping)
	rec = get(t, server, "/api/v1/projects/alpha/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Summary struct {
			TotalThoughts int `json:"totalThoughts"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Summary.TotalThoughts)
}

func TestHandleMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	server, st := setupTestServer(t, WithRegistry(reg))
	addThought(t, st, "alpha", 1, thought.StageScoping)
	addThought(t, st, "alpha", 2, thought.StageScoping)

	rec := get(t, server, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `thoughtd_project_thoughts{project="alpha"} 2`)
}

func TestNotFound(t *testing.T) {
	server, _ := setupTestServer(t)

	rec := get(t, server, "/api/v1/nothing")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestRateLimit(t *testing.T) {
	st := newTestStore(t, t.TempDir())
	server, err := NewServer(st, zap.NewNop(), &Config{RateLimit: 1, RateBurst: 2})
	require.NoError(t, err)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, get(t, server, "/api/v1/projects").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Health checks are not rate limited.
	assert.Equal(t, http.StatusOK, get(t, server, "/health").Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", thought.ErrUnknownStage, http.StatusBadRequest},
		{"canceled", context.Canceled, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := statusFor(tt.err)
			assert.Equal(t, tt.code, code)
			assert.False(t, strings.TrimSpace(msg) == "")
		})
	}
}
