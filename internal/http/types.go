package http

import (
	"github.com/fyrsmithlabs/thoughtd/internal/telemetry"
	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string                  `json:"status"`
	Version   string                  `json:"version,omitempty"`
	Telemetry *telemetry.HealthStatus `json:"telemetry,omitempty"`
}

// ProjectsResponse is the response body for GET /api/v1/projects.
type ProjectsResponse struct {
	Default  string          `json:"default"`
	Projects []ProjectStatus `json:"projects"`
}

// ProjectStatus describes one known project. Thoughts is only reported for
// projects whose history is loaded in memory.
type ProjectStatus struct {
	ID       string `json:"id"`
	Loaded   bool   `json:"loaded"`
	Thoughts *int   `json:"thoughts,omitempty"`
}

// ThoughtsResponse is the response body for GET /api/v1/projects/:project/thoughts.
type ThoughtsResponse struct {
	Project  string           `json:"project"`
	Stage    string           `json:"stage,omitempty"`
	Count    int              `json:"count"`
	Thoughts []thought.Record `json:"thoughts"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
