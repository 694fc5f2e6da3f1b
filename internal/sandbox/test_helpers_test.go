package sandbox

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sandbox/internal/clusterpath"
	"github.com/roach88/sandbox/internal/record"
	"github.com/roach88/sandbox/internal/store"
	"github.com/roach88/sandbox/internal/tablestore"
	"github.com/roach88/sandbox/internal/testutil"
)

const (
	originalPath = "/dataset/production"
	sandboxPath  = "/dataset/sandbox/production_sb"
)

// faultCluster wraps a real cluster and injects failures per operation.
type faultCluster struct {
	tablestore.Cluster

	mu      sync.Mutex
	calls   map[string]int
	errs    map[string]error
	block   map[string]bool
	before  map[string]func(attempt int) error
	afterFn map[string]func(attempt int, err error) error
}

func newFaultCluster(inner tablestore.Cluster) *faultCluster {
	return &faultCluster{
		Cluster: inner,
		calls:   map[string]int{},
		errs:    map[string]error{},
		block:   map[string]bool{},
		before:  map[string]func(int) error{},
		afterFn: map[string]func(int, error) error{},
	}
}

func (f *faultCluster) fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = err
}

func (f *faultCluster) hang(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block[op] = true
}

// script decides each attempt's outcome before the real operation runs.
// A non-nil error skips the real operation.
func (f *faultCluster) script(op string, fn func(attempt int) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.before[op] = fn
}

// after runs the real operation, then replaces its result with fn's.
func (f *faultCluster) after(op string, fn func(attempt int, err error) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.afterFn[op] = fn
}

func (f *faultCluster) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *faultCluster) enter(ctx context.Context, op string) (int, error) {
	f.mu.Lock()
	f.calls[op]++
	attempt := f.calls[op]
	err := f.errs[op]
	block := f.block[op]
	fn := f.before[op]
	f.mu.Unlock()

	if fn != nil && err == nil {
		err = fn(attempt)
	}

	if block {
		<-ctx.Done()
		return attempt, ctx.Err()
	}
	return attempt, err
}

func (f *faultCluster) exit(op string, attempt int, err error) error {
	f.mu.Lock()
	fn := f.afterFn[op]
	f.mu.Unlock()
	if fn == nil {
		return err
	}
	return fn(attempt, err)
}

func (f *faultCluster) TableExists(ctx context.Context, path string) (bool, error) {
	if _, err := f.enter(ctx, "exists"); err != nil {
		return false, err
	}
	return f.Cluster.TableExists(ctx, path)
}

func (f *faultCluster) CreateTable(ctx context.Context, path string, families mapset.Set[string]) error {
	attempt, err := f.enter(ctx, "create")
	if err != nil {
		return err
	}
	return f.exit("create", attempt, f.Cluster.CreateTable(ctx, path, families))
}

func (f *faultCluster) DropTable(ctx context.Context, path string) error {
	attempt, err := f.enter(ctx, "drop")
	if err != nil {
		return err
	}
	return f.exit("drop", attempt, f.Cluster.DropTable(ctx, path))
}

func (f *faultCluster) GetFamilies(ctx context.Context, path string) (mapset.Set[string], error) {
	if _, err := f.enter(ctx, "families"); err != nil {
		return nil, err
	}
	return f.Cluster.GetFamilies(ctx, path)
}

func (f *faultCluster) Tables(ctx context.Context) ([]string, error) {
	if _, err := f.enter(ctx, "tables"); err != nil {
		return nil, err
	}
	return f.Cluster.(tablestore.Lister).Tables(ctx)
}

// faultStore wraps the SQLite store and injects failures.
type faultStore struct {
	*store.Store
	transitionErr error
	touchErr      error
}

func (s *faultStore) Transition(ctx context.Context, sandboxPath string, from, to record.State) error {
	if s.transitionErr != nil {
		return s.transitionErr
	}
	return s.Store.Transition(ctx, sandboxPath, from, to)
}

func (s *faultStore) TouchRecent(ctx context.Context, user, sandboxPath string) error {
	if s.touchErr != nil {
		return s.touchErr
	}
	return s.Store.TouchRecent(ctx, user, sandboxPath)
}

// faultFS wraps the mount filesystem and injects write failures.
type faultFS struct {
	*clusterpath.FS
	writeErr error
}

func (f *faultFS) WriteFile(logical string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	return f.FS.WriteFile(logical, data)
}

type fixture struct {
	manager *Manager
	cluster *faultCluster
	store   *faultStore
	fs      *faultFS
	clock   *testutil.DeterministicClock
	root    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mem, err := tablestore.NewMemory()
	require.NoError(t, err)

	st, err := store.Open(filepath.Join(t.TempDir(), "sandbox.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	root := t.TempDir()
	resolver, err := clusterpath.NewResolver(map[string]string{"/dataset": root})
	require.NoError(t, err)

	f := &fixture{
		cluster: newFaultCluster(mem),
		store:   &faultStore{Store: st},
		fs:      &faultFS{FS: clusterpath.NewFS(resolver)},
		clock:   testutil.NewDeterministicClock(),
		root:    root,
	}
	f.manager = NewManager(f.cluster, f.store, f.fs, Options{
		User:         "alice",
		CallTimeout:  50 * time.Millisecond,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		StaleAfter:   time.Minute,
		Clock:        f.clock,
		IDs:          record.NewSequenceGenerator("sb"),
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

// seedTable creates a table directly in the cluster, bypassing fault injection.
func (f *fixture) seedTable(t *testing.T, path string, families ...string) {
	t.Helper()
	require.NoError(t, f.cluster.Cluster.CreateTable(context.Background(), path, mapset.NewSet(families...)))
}

func (f *fixture) tableExists(t *testing.T, path string) bool {
	t.Helper()
	ok, err := f.cluster.Cluster.TableExists(context.Background(), path)
	require.NoError(t, err)
	return ok
}

func (f *fixture) artifactExists(t *testing.T, sandbox string) bool {
	t.Helper()
	ok, err := f.fs.Exists(ArtifactPath(sandbox))
	require.NoError(t, err)
	return ok
}

func (f *fixture) recordExists(t *testing.T, sandbox string) bool {
	t.Helper()
	_, err := f.store.Lookup(context.Background(), sandbox)
	if err == nil {
		return true
	}
	require.ErrorIs(t, err, store.ErrNotFound)
	return false
}
