// Package http provides the read-only HTTP inspection API for thoughtd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/thoughtd/internal/analysis"
	"github.com/fyrsmithlabs/thoughtd/internal/sanitize"
	"github.com/fyrsmithlabs/thoughtd/internal/session"
	"github.com/fyrsmithlabs/thoughtd/internal/telemetry"
	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

// ThoughtReader is the read side of store.Store.
type ThoughtReader interface {
	ProjectCounter
	All(ctx context.Context, projectID string) ([]*thought.Thought, error)
	ByStage(ctx context.Context, stage thought.Stage, projectID string) ([]*thought.Thought, error)
	Projects(ctx context.Context) ([]string, error)
	DefaultProject() string
}

// Server provides HTTP endpoints for thoughtd.
type Server struct {
	echo     *echo.Echo
	store    ThoughtReader
	logger   *zap.Logger
	config   *Config
	registry *prometheus.Registry
	meter    metric.Meter
	health   func() telemetry.HealthStatus
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// Version is reported by /health.
	Version string

	// RateLimit is the sustained requests per second allowed per client IP
	// on the API routes. Zero disables rate limiting.
	RateLimit float64

	// RateBurst defaults to RateLimit rounded down.
	RateBurst int
}

// Option configures a Server.
type Option func(*Server)

// WithMeter records request metrics on m instead of the global provider.
func WithMeter(m metric.Meter) Option {
	return func(s *Server) { s.meter = m }
}

// WithTelemetryHealth includes the telemetry provider state in /health.
func WithTelemetryHealth(fn func() telemetry.HealthStatus) Option {
	return func(s *Server) { s.health = fn }
}

// WithRegistry serves /metrics from reg. The project collector is
// registered on it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// NewServer creates a new HTTP server.
func NewServer(store ThoughtReader, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("thought store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:      "localhost",
			Port:      9091,
			RateLimit: 20,
		}
	}

	s := &Server{
		store:  store,
		logger: logger,
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	if err := s.registry.Register(NewProjectCollector(store)); err != nil {
		return nil, fmt.Errorf("failed to register project collector: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})
	e.Use(NewHTTPMetrics(s.meter, logger).MetricsMiddleware())

	s.echo = e
	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := s.echo.Group("/api/v1")
	if s.config.RateLimit > 0 {
		v1.Use(middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:  rate.Limit(s.config.RateLimit),
				Burst: s.config.RateBurst,
			}),
		}))
	}
	v1.GET("/projects", s.handleProjects)
	v1.GET("/projects/:project/thoughts", s.handleThoughts)
	v1.GET("/projects/:project/summary", s.handleSummary)
}

// Echo returns the underlying router.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// handleHealth reports liveness and, when configured, telemetry state.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Version: s.config.Version}
	if s.health != nil {
		h := s.health()
		resp.Telemetry = &h
		if h.Degraded {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleProjects(c echo.Context) error {
	ids, err := s.store.Projects(c.Request().Context())
	if err != nil {
		return err
	}
	counts := s.store.LoadedCounts()

	resp := ProjectsResponse{
		Default:  s.store.DefaultProject(),
		Projects: make([]ProjectStatus, len(ids)),
	}
	for i, id := range ids {
		resp.Projects[i] = ProjectStatus{ID: id}
		if n, ok := counts[id]; ok {
			resp.Projects[i].Loaded = true
			resp.Projects[i].Thoughts = &n
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleThoughts(c echo.Context) error {
	ctx := c.Request().Context()
	project := sanitize.ProjectID(c.Param("project"))

	var (
		thoughts []*thought.Thought
		stage    string
		err      error
	)
	if raw := c.QueryParam("stage"); raw != "" {
		st, perr := thought.ParseStage(raw)
		if perr != nil {
			return perr
		}
		stage = st.String()
		thoughts, err = s.store.ByStage(ctx, st, project)
	} else {
		thoughts, err = s.store.All(ctx, project)
	}
	if err != nil {
		return err
	}

	records := make([]thought.Record, len(thoughts))
	for i, t := range thoughts {
		records[i] = t.Record()
	}
	return c.JSON(http.StatusOK, ThoughtsResponse{
		Project:  project,
		Stage:    stage,
		Count:    len(records),
		Thoughts: records,
	})
}

func (s *Server) handleSummary(c echo.Context) error {
	all, err := s.store.All(c.Request().Context(), sanitize.ProjectID(c.Param("project")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analysis.Summarize(all))
}

// handleError renders every error as an ErrorResponse with a status derived
// from its cause.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("http request failed",
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", code),
			zap.Error(err),
		)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(code)
	} else {
		werr = c.JSON(code, ErrorResponse{Error: msg})
	}
	if werr != nil {
		s.logger.Warn("failed to write error response", zap.Error(werr))
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code, fmt.Sprint(he.Message)
	case errors.Is(err, thought.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrLockTimeout):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request canceled"
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// Start starts the HTTP server. It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
