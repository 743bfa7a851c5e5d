// Package store keeps per-project thought histories in memory and persists
// each one to its own session file.
//
// A Store loads a project's history lazily on first use and writes the
// whole history back after every mutation. One mutex serializes all
// operations on a Store, including the write that follows a mutation;
// companion lock files serialize access across processes.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/thoughtd/internal/sanitize"
	"github.com/fyrsmithlabs/thoughtd/internal/session"
	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

const instrumentationName = "github.com/fyrsmithlabs/thoughtd/internal/store"

const (
	sessionSuffix = "_session.json"
	lockSuffix    = "_session.lock"
)

// ErrNilThought is returned by Add when given a nil thought.
var ErrNilThought = errors.New("thought is required")

// Option configures a Store.
type Option func(*Store)

// WithMeter sets the meter used for store metrics.
func WithMeter(m metric.Meter) Option {
	return func(s *Store) { s.meter = m }
}

// WithTracer sets the tracer used for store spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) { s.tracer = t }
}

// Store is a project-scoped thought store.
//
// All exported methods lock mu exactly once; helpers named *Locked expect
// the caller to hold it.
type Store struct {
	mu             sync.Mutex
	currentProject string
	histories      map[string][]*thought.Thought

	config  *Config
	codec   *session.Codec
	logger  *zap.Logger
	tracer  trace.Tracer
	meter   metric.Meter
	metrics *metrics
}

// New creates a Store. Histories are not read until first use.
func New(cfg *Config, logger *zap.Logger, opts ...Option) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	policy := cfg.CorruptPolicy
	if policy == "" {
		policy = CorruptFail
	}
	c := *cfg
	c.CorruptPolicy = policy

	s := &Store{
		currentProject: sanitize.ProjectID(cfg.DefaultProject),
		histories:      make(map[string][]*thought.Thought),
		config:         &c,
		logger:         logger.Named("store"),
		tracer:         otel.Tracer(instrumentationName),
		meter:          otel.Meter(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.codec = session.NewCodec(session.Config{LockTimeout: c.LockTimeout}, s.logger.Named("session"))
	s.metrics = newMetrics(s.meter, s.logger)

	return s, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.config.Dir
}

// DefaultProject returns the project used when an operation names none.
func (s *Store) DefaultProject() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentProject
}

// SetDefaultProject sanitizes id, loads its history and makes it the
// default project. The default is unchanged if loading fails.
func (s *Store) SetDefaultProject(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "store.set_default_project", id)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	pid := sanitize.ProjectID(id)
	if _, err := s.historyLocked(ctx, pid); err != nil {
		return s.fail(ctx, span, "set_default_project", err)
	}
	if pid != s.currentProject {
		s.logger.Info("default project changed",
			zap.String("from", s.currentProject),
			zap.String("to", pid),
		)
	}
	s.currentProject = pid
	return nil
}

// Add appends t to the project's history and persists the full history.
// If the write fails the history is left as it was.
func (s *Store) Add(ctx context.Context, t *thought.Thought, projectID string) error {
	ctx, span := s.startSpan(ctx, "store.add", projectID)
	defer span.End()

	if t == nil {
		return s.fail(ctx, span, "add", ErrNilThought)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pid := s.resolveLocked(projectID)
	history, err := s.historyLocked(ctx, pid)
	if err != nil {
		return s.fail(ctx, span, "add", err)
	}

	next := make([]*thought.Thought, len(history), len(history)+1)
	copy(next, history)
	next = append(next, t.Clone())

	if err := s.persistLocked(ctx, pid, next); err != nil {
		return s.fail(ctx, span, "add", err)
	}
	s.histories[pid] = next

	s.metrics.recordAdd(ctx, pid)
	s.logger.Debug("thought added",
		zap.String("project", pid),
		zap.String("thought_id", t.ID.String()),
		zap.Int("thought_number", t.Number),
		zap.String("stage", string(t.Stage)),
		zap.Int("history_size", len(next)),
	)
	return nil
}

// All returns a copy of the project's history in insertion order.
func (s *Store) All(ctx context.Context, projectID string) ([]*thought.Thought, error) {
	ctx, span := s.startSpan(ctx, "store.all", projectID)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.historyLocked(ctx, s.resolveLocked(projectID))
	if err != nil {
		return nil, s.fail(ctx, span, "all", err)
	}
	return thought.CloneAll(history), nil
}

// ByStage returns a copy of the project's thoughts in stage, in insertion
// order.
func (s *Store) ByStage(ctx context.Context, stage thought.Stage, projectID string) ([]*thought.Thought, error) {
	ctx, span := s.startSpan(ctx, "store.by_stage", projectID)
	defer span.End()
	span.SetAttributes(attribute.String("stage", string(stage)))

	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.historyLocked(ctx, s.resolveLocked(projectID))
	if err != nil {
		return nil, s.fail(ctx, span, "by_stage", err)
	}

	out := make([]*thought.Thought, 0, len(history))
	for _, t := range history {
		if t.Stage == stage {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// Clear empties the project's history and persists the empty history.
func (s *Store) Clear(ctx context.Context, projectID string) error {
	ctx, span := s.startSpan(ctx, "store.clear", projectID)
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	pid := s.resolveLocked(projectID)
	empty := []*thought.Thought{}
	if err := s.persistLocked(ctx, pid, empty); err != nil {
		return s.fail(ctx, span, "clear", err)
	}
	s.histories[pid] = empty

	s.logger.Info("history cleared", zap.String("project", pid))
	return nil
}

// Export writes the project's history with export metadata to path.
// The history is snapshotted under the store lock and written after it is
// released.
func (s *Store) Export(ctx context.Context, path, projectID string) error {
	ctx, span := s.startSpan(ctx, "store.export", projectID)
	defer span.End()

	dest, err := sanitize.ValidatePath(path)
	if err != nil {
		return s.fail(ctx, span, "export", err)
	}

	s.mu.Lock()
	pid := s.resolveLocked(projectID)
	history, err := s.historyLocked(ctx, pid)
	snapshot := thought.CloneAll(history)
	s.mu.Unlock()
	if err != nil {
		return s.fail(ctx, span, "export", err)
	}

	start := time.Now()
	if err := s.codec.Save(ctx, dest, snapshot, sanitize.LockPath(dest), &session.ExportMetadata{Project: pid}); err != nil {
		return s.fail(ctx, span, "export", err)
	}
	s.metrics.recordPersist(ctx, "export", time.Since(start))

	s.logger.Info("session exported",
		zap.String("project", pid),
		zap.String("path", dest),
		zap.Int("thoughts", len(snapshot)),
	)
	return nil
}

// Import replaces the project's history with the records read from path
// and persists the result. The file is read before the store lock is
// taken. A missing file is an error rather than an empty history.
func (s *Store) Import(ctx context.Context, path, projectID string) error {
	ctx, span := s.startSpan(ctx, "store.import", projectID)
	defer span.End()

	src, err := sanitize.ValidatePath(path)
	if err != nil {
		return s.fail(ctx, span, "import", err)
	}
	if _, err := os.Stat(src); err != nil {
		return s.fail(ctx, span, "import", &session.StorageError{Op: "import", Path: src, Err: err})
	}

	loaded, err := s.codec.Load(ctx, src, sanitize.LockPath(src))
	if err != nil {
		return s.fail(ctx, span, "import", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pid := s.resolveLocked(projectID)
	if err := s.persistLocked(ctx, pid, loaded); err != nil {
		return s.fail(ctx, span, "import", err)
	}
	s.histories[pid] = loaded

	s.logger.Info("session imported",
		zap.String("project", pid),
		zap.String("path", src),
		zap.Int("thoughts", len(loaded)),
	)
	return nil
}

// Projects lists the projects known to this store: those loaded in memory
// and those with a session file in the storage directory, sorted.
func (s *Store) Projects(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	seen := make(map[string]struct{}, len(s.histories))
	for pid := range s.histories {
		seen[pid] = struct{}{}
	}
	s.mu.Unlock()

	entries, err := os.ReadDir(s.config.Dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to list storage dir: %w", err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, sessionSuffix) {
			continue
		}
		if pid := strings.TrimSuffix(name, sessionSuffix); pid != "" {
			seen[pid] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for pid := range seen {
		out = append(out, pid)
	}
	sort.Strings(out)
	return out, nil
}

// LoadedCounts returns the history size of every project currently held
// in memory.
func (s *Store) LoadedCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]int, len(s.histories))
	for pid, h := range s.histories {
		out[pid] = len(h)
	}
	return out
}

// SessionPath returns the session file for a project.
func (s *Store) SessionPath(projectID string) string {
	return filepath.Join(s.config.Dir, sanitize.ProjectID(projectID)+sessionSuffix)
}

func (s *Store) lockPath(pid string) string {
	return filepath.Join(s.config.Dir, pid+lockSuffix)
}

func (s *Store) resolveLocked(projectID string) string {
	if strings.TrimSpace(projectID) == "" {
		return s.currentProject
	}
	return sanitize.ProjectID(projectID)
}

// historyLocked returns the cached history for pid, loading it on first
// use. Nothing is cached when the load fails.
func (s *Store) historyLocked(ctx context.Context, pid string) ([]*thought.Thought, error) {
	if h, ok := s.histories[pid]; ok {
		return h, nil
	}

	path := filepath.Join(s.config.Dir, pid+sessionSuffix)
	h, err := s.codec.Load(ctx, path, s.lockPath(pid))
	if err != nil {
		if !errors.Is(err, session.ErrCorrupted) || s.config.CorruptPolicy != CorruptQuarantine {
			return nil, err
		}
		if _, qerr := s.codec.Quarantine(ctx, path, s.lockPath(pid)); qerr != nil {
			return nil, errors.Join(err, qerr)
		}
		h = []*thought.Thought{}
	}

	s.histories[pid] = h
	s.logger.Debug("project loaded", zap.String("project", pid), zap.Int("thoughts", len(h)))
	return h, nil
}

func (s *Store) persistLocked(ctx context.Context, pid string, history []*thought.Thought) error {
	start := time.Now()
	path := filepath.Join(s.config.Dir, pid+sessionSuffix)
	if err := s.codec.Save(ctx, path, history, s.lockPath(pid), nil); err != nil {
		return err
	}
	s.metrics.recordPersist(ctx, "session", time.Since(start))
	return nil
}

func (s *Store) startSpan(ctx context.Context, name, projectID string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	if projectID != "" {
		span.SetAttributes(attribute.String("project_id", projectID))
	}
	return ctx, span
}

func (s *Store) fail(ctx context.Context, span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.metrics.recordError(ctx, op)
	return err
}
