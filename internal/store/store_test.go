package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/thoughtd/internal/logging"
	"github.com/fyrsmithlabs/thoughtd/internal/session"
	"github.com/fyrsmithlabs/thoughtd/internal/thought"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestStore(t *testing.T, dir string, opts ...Option) *Store {
	t.Helper()
	s, err := New(&Config{
		Dir:            dir,
		DefaultProject: "default",
		LockTimeout:    200 * time.Millisecond,
	}, nil, opts...)
	require.NoError(t, err)
	return s
}

func mkThought(t *testing.T, n int, stage thought.Stage) *thought.Thought {
	t.Helper()
	th, err := thought.New(thought.Params{
		Content:    fmt.Sprintf("thought %d", n),
		Number:     n,
		Total:      n + 1,
		NextNeeded: true,
		Stage:      stage,
	})
	require.NoError(t, err)
	return th
}

func records(ts []*thought.Thought) []thought.Record {
	out := make([]thought.Record, len(ts))
	for i, t := range ts {
		out[i] = t.Record()
	}
	return out
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(&Config{Dir: ""}, nil)
	assert.Error(t, err)

	_, err = New(&Config{Dir: t.TempDir(), CorruptPolicy: "ignore"}, nil)
	assert.Error(t, err)
}

func TestStore_AddAndAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())

	a := mkThought(t, 1, thought.StageScoping)
	b := mkThought(t, 2, thought.StageResearch)
	require.NoError(t, s.Add(ctx, a, ""))
	require.NoError(t, s.Add(ctx, b, ""))

	all, err := s.All(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].Equal(a))
	assert.True(t, all[1].Equal(b))
}

func TestStore_AddNil(t *testing.T) {
	s := newTestStore(t, t.TempDir())
	assert.ErrorIs(t, s.Add(context.Background(), nil, ""), ErrNilThought)
}

func TestStore_SnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())
	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageScoping), ""))

	first, err := s.All(ctx, "")
	require.NoError(t, err)
	first[0].Content = "mutated"
	first[0].Tags = append(first[0].Tags, "leak")

	again, err := s.All(ctx, "")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "thought 1", again[0].Content)
	assert.Empty(t, again[0].Tags)
}

func TestStore_ProjectIsolation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())

	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageScoping), "alpha"))
	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageScoping), "beta"))
	require.NoError(t, s.Add(ctx, mkThought(t, 2, thought.StageTesting), "beta"))

	alpha, err := s.All(ctx, "alpha")
	require.NoError(t, err)
	beta, err := s.All(ctx, "beta")
	require.NoError(t, err)
	def, err := s.All(ctx, "")
	require.NoError(t, err)

	assert.Len(t, alpha, 1)
	assert.Len(t, beta, 2)
	assert.Empty(t, def)
}

func TestStore_DefaultProject(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestStore(t, dir)
	assert.Equal(t, "default", s.DefaultProject())

	require.NoError(t, s.SetDefaultProject(ctx, "my project"))
	assert.Equal(t, "my_project", s.DefaultProject())

	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageScoping), ""))

	explicit, err := s.All(ctx, "my project")
	require.NoError(t, err)
	assert.Len(t, explicit, 1)

	_, err = os.Stat(filepath.Join(dir, "my_project_session.json"))
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "my_project_session.json"), s.SessionPath("my project"))
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := newTestStore(t, dir)
	in := []*thought.Thought{
		mkThought(t, 1, thought.StageScoping),
		mkThought(t, 2, thought.StageImplementation),
	}
	for _, th := range in {
		require.NoError(t, first.Add(ctx, th, "proj"))
	}

	second := newTestStore(t, dir)
	out, err := second.All(ctx, "proj")
	require.NoError(t, err)

	if diff := cmp.Diff(records(in), records(out)); diff != "" {
		t.Errorf("reloaded history mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_ByStage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())

	stages := []thought.Stage{
		thought.StageScoping, thought.StageTesting, thought.StageImplementation, thought.StageTesting,
	}
	for i, st := range stages {
		require.NoError(t, s.Add(ctx, mkThought(t, i+1, st), ""))
	}

	testing_, err := s.ByStage(ctx, thought.StageTesting, "")
	require.NoError(t, err)
	require.Len(t, testing_, 2)
	assert.Equal(t, 2, testing_[0].Number)
	assert.Equal(t, 4, testing_[1].Number)

	review, err := s.ByStage(ctx, thought.StageReview, "")
	require.NoError(t, err)
	assert.Empty(t, review)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestStore(t, dir)
	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageScoping), "p"))
	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageScoping), "other"))

	require.NoError(t, s.Clear(ctx, "p"))

	p, err := s.All(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, p)

	other, err := s.All(ctx, "other")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	reloaded, err := newTestStore(t, dir).All(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, reloaded)
}

func TestStore_ExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestStore(t, dir)

	for i, st := range thought.Stages() {
		require.NoError(t, s.Add(ctx, mkThought(t, i+1, st), "src"))
	}
	exportPath := filepath.Join(t.TempDir(), "exports", "src.json")
	require.NoError(t, s.Export(ctx, exportPath, "src"))

	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageReview), "dst"))
	require.NoError(t, s.Import(ctx, exportPath, "dst"))

	src, err := s.All(ctx, "src")
	require.NoError(t, err)
	dst, err := s.All(ctx, "dst")
	require.NoError(t, err)

	if diff := cmp.Diff(records(src), records(dst)); diff != "" {
		t.Errorf("imported history mismatch (-want +got):\n%s", diff)
	}

	// Import persisted to the destination project's session file.
	reloaded, err := newTestStore(t, dir).All(ctx, "dst")
	require.NoError(t, err)
	assert.Len(t, reloaded, len(thought.Stages()))
}

func TestStore_ImportMissingFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())
	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageScoping), ""))

	err := s.Import(ctx, filepath.Join(t.TempDir(), "missing.json"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrStorage)
	assert.ErrorIs(t, err, os.ErrNotExist)

	all, err := s.All(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_ImportCorruptedFile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())
	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageScoping), ""))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{{{"), 0o600))

	err := s.Import(ctx, bad, "")
	assert.ErrorIs(t, err, session.ErrCorrupted)

	all, err := s.All(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_CorruptPolicyFail(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "p_session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	s := newTestStore(t, dir)
	_, err := s.All(ctx, "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrCorrupted)

	// Nothing was cached, so fixing the file makes the next call succeed.
	require.NoError(t, os.WriteFile(path, []byte(`{"thoughts": []}`), 0o600))
	all, err := s.All(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_CorruptPolicyQuarantine(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "p_session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	s, err := New(&Config{Dir: dir, CorruptPolicy: CorruptQuarantine}, nil)
	require.NoError(t, err)

	all, err := s.All(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, all)

	matches, err := filepath.Glob(path + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestStore_AddLeavesHistoryOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := New(&Config{Dir: dir, LockTimeout: 30 * time.Millisecond}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageScoping), "p"))

	holder := flock.New(filepath.Join(dir, "p_session.lock"))
	require.NoError(t, holder.Lock())

	err = s.Add(ctx, mkThought(t, 2, thought.StageScoping), "p")
	require.NoError(t, holder.Unlock())
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrLockTimeout)

	all, err := s.All(ctx, "p")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_ConcurrentAdds(t *testing.T) {
	const n = 40
	ctx := context.Background()
	dir := t.TempDir()
	s := newTestStore(t, dir)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		th := mkThought(t, i+1, thought.StageImplementation)
		g.Go(func() error {
			return s.Add(gctx, th, "shared")
		})
	}
	require.NoError(t, g.Wait())

	all, err := s.All(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, all, n)

	reloaded, err := newTestStore(t, dir).All(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, reloaded, n)

	seen := make(map[string]bool, n)
	for _, th := range reloaded {
		seen[th.ID.String()] = true
	}
	assert.Len(t, seen, n)
}

func TestStore_ConcurrentProjects(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, t.TempDir())

	var g errgroup.Group
	for p := 0; p < 4; p++ {
		project := fmt.Sprintf("p%d", p)
		for i := 0; i < 10; i++ {
			th := mkThought(t, i+1, thought.StageTesting)
			g.Go(func() error { return s.Add(ctx, th, project) })
		}
	}
	require.NoError(t, g.Wait())

	for p := 0; p < 4; p++ {
		all, err := s.All(ctx, fmt.Sprintf("p%d", p))
		require.NoError(t, err)
		assert.Len(t, all, 10)
	}
}

func TestStore_Projects(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "disk_session.json"), []byte(`{"thoughts": []}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	s := newTestStore(t, dir)
	_, err := s.All(ctx, "memory")
	require.NoError(t, err)

	projects, err := s.Projects(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"disk", "memory"}, projects)

	counts := s.LoadedCounts()
	assert.Equal(t, map[string]int{"memory": 0}, counts)
}

func TestStore_Metrics(t *testing.T) {
	ctx := context.Background()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	s := newTestStore(t, t.TempDir(), WithMeter(provider.Meter("test")))
	require.NoError(t, s.Add(ctx, mkThought(t, 1, thought.StageScoping), ""))
	require.NoError(t, s.Add(ctx, mkThought(t, 2, thought.StageScoping), ""))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	var added int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "thoughtd.store.thoughts_added_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				added += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), added)
}

func TestStore_Logging(t *testing.T) {
	ctx := context.Background()
	tl := logging.NewTestLogger()

	s, err := New(&Config{Dir: t.TempDir()}, tl.Underlying())
	require.NoError(t, err)
	require.NoError(t, s.Clear(ctx, "p"))

	tl.AssertLogged(t, zapcore.InfoLevel, "history cleared")
	tl.AssertField(t, "history cleared", "project", "p")
}
