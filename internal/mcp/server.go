package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/logging"
	"github.com/fyrsmithlabs/thoughtd/internal/sanitize"
	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

// ThoughtStore is the subset of store.Store the tools use.
type ThoughtStore interface {
	Add(ctx context.Context, t *thought.Thought, projectID string) error
	All(ctx context.Context, projectID string) ([]*thought.Thought, error)
	ByStage(ctx context.Context, stage thought.Stage, projectID string) ([]*thought.Thought, error)
	Clear(ctx context.Context, projectID string) error
	Export(ctx context.Context, path, projectID string) error
	Import(ctx context.Context, path, projectID string) error
	SetDefaultProject(ctx context.Context, id string) error
	DefaultProject() string
}

// Server exposes a ThoughtStore over MCP.
type Server struct {
	mcp     *mcp.Server
	store   ThoughtStore
	logger  *logging.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "sequential-thinking").
	Name string

	// Version is the server version (default: "0.1.0").
	Version string

	// Logger defaults to a nop logger.
	Logger *logging.Logger

	// Meter and Tracer default to the global providers.
	Meter  metric.Meter
	Tracer trace.Tracer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "sequential-thinking",
		Version: "0.1.0",
		Logger:  logging.NewNop(),
	}
}

// NewServer creates an MCP server with every tool and prompt registered.
func NewServer(cfg *Config, store ThoughtStore) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if store == nil {
		return nil, fmt.Errorf("thought store is required")
	}
	if cfg.Name == "" {
		cfg.Name = "sequential-thinking"
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		store:   store,
		logger:  logger.Named("mcp"),
		tracer:  tracer,
		metrics: NewMetrics(cfg.Meter, logger.Underlying()),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}
	s.registerPrompts()

	return s, nil
}

// Run serves MCP on the stdio transport until ctx is done or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves MCP on t.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	if err := s.mcp.Run(ctx, t); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// Connect starts a single session on t, for in-process clients.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, t, nil)
}

// Close flushes the server logger.
func (s *Server) Close() error {
	s.logger.Info(context.Background(), "closing MCP server")
	return s.logger.Sync()
}

// begin opens a span and annotates ctx for one tool or prompt call. The
// returned func records metrics and ends the span.
func (s *Server) begin(ctx context.Context, name, projectID string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "mcp."+name, trace.WithAttributes(attribute.String("mcp.tool", name)))
	ctx = logging.WithTool(ctx, name)
	if projectID != "" {
		pid := sanitize.ProjectID(projectID)
		span.SetAttributes(attribute.String("project", pid))
		ctx = logging.WithProjectID(ctx, pid)
	}
	s.metrics.IncrementActive(ctx, name)

	return ctx, func(err error) {
		s.metrics.DecrementActive(ctx, name)
		s.metrics.RecordInvocation(ctx, name, time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error(ctx, "tool failed", zap.Error(err), zap.String("reason", categorizeError(err)))
		}
		span.End()
	}
}
