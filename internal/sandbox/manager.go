package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/containerd/errdefs"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/moby/locker"

	"github.com/roach88/sandbox/internal/clusterpath"
	"github.com/roach88/sandbox/internal/record"
	"github.com/roach88/sandbox/internal/shadow"
	"github.com/roach88/sandbox/internal/tablestore"
)

// Defaults applied by NewManager to zero Options fields. MaxRetries and
// RetryBackoff have none: zero means no retries and no wait between them.
const (
	DefaultCallTimeout       = 30 * time.Second
	DefaultVerifyConcurrency = 8
	DefaultStaleAfter        = 10 * time.Minute
	DefaultUser              = "default"
)

// MetadataStore persists sandbox records and the per-user recent list.
// Errors wrap containerd/errdefs classes: NotFound for a missing record,
// AlreadyExists for a duplicate insert, Conflict for a failed transition.
type MetadataStore interface {
	Insert(ctx context.Context, rec record.Record) error
	Transition(ctx context.Context, sandboxPath string, from, to record.State) error
	Remove(ctx context.Context, sandboxPath string) error
	Lookup(ctx context.Context, sandboxPath string) (record.Record, error)
	ListActive(ctx context.Context, originalPath string) ([]record.Record, error)
	ListStale(ctx context.Context) ([]record.Record, error)

	TouchRecent(ctx context.Context, user, sandboxPath string) error
	RemoveRecent(ctx context.Context, sandboxPath string) error
	ListRecent(ctx context.Context, user string) ([]string, error)
}

// ArtifactFS stores metadata artifacts on the cluster mount, addressed by
// logical path. Remove must tolerate a missing file.
type ArtifactFS interface {
	Resolve(logical string) (string, error)
	Exists(logical string) (bool, error)
	WriteFile(logical string, data []byte) error
	ReadFile(logical string) ([]byte, error)
	Remove(logical string) error
}

// Options configures a Manager.
type Options struct {
	// User owns the recent-sandbox list.
	User string

	// CallTimeout bounds each individual cluster call.
	CallTimeout time.Duration

	// MaxRetries is the number of retries after a transient cluster failure.
	MaxRetries int

	// RetryBackoff is the initial backoff between retries.
	RetryBackoff time.Duration

	// VerifyConcurrency bounds the sandboxes checked in parallel by Verify.
	VerifyConcurrency int

	// StaleAfter is the age after which a creating/deleting record is
	// considered abandoned by a crashed process.
	StaleAfter time.Duration

	Clock  record.Clock
	IDs    record.IDGenerator
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.User == "" {
		o.User = DefaultUser
	}
	if o.CallTimeout == 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.VerifyConcurrency <= 0 {
		o.VerifyConcurrency = DefaultVerifyConcurrency
	}
	if o.StaleAfter == 0 {
		o.StaleAfter = DefaultStaleAfter
	}
	if o.Clock == nil {
		o.Clock = record.SystemClock{}
	}
	if o.IDs == nil {
		o.IDs = record.UUIDv7Generator{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Manager creates and deletes sandboxes.
//
// Thread-safety: Manager is safe for concurrent use. Operations on the same
// sandbox path are serialised; distinct paths proceed independently.
type Manager struct {
	cluster  tablestore.Cluster
	metadata MetadataStore
	files    ArtifactFS
	opts     Options
	logger   *slog.Logger
	locks    *locker.Locker
}

// NewManager wires a Manager to its collaborators.
// Zero-valued Options fields take the package defaults; MaxRetries and
// RetryBackoff are used as given so callers can disable retries.
func NewManager(cluster tablestore.Cluster, metadata MetadataStore, files ArtifactFS, opts Options) *Manager {
	opts = opts.withDefaults()
	return &Manager{
		cluster:  cluster,
		metadata: metadata,
		files:    files,
		opts:     opts,
		logger:   opts.Logger,
		locks:    locker.New(),
	}
}

// Create derives a sandbox of originalPath at sandboxPath.
//
// The sandbox table gets the original's column families plus the shadow
// family. On success the record is active and the metadata artifact is on
// the mount; on failure none of the table, record or artifact remain.
func (m *Manager) Create(ctx context.Context, originalPath, sandboxPath string) (record.Record, error) {
	const op = "create"

	original, err := m.cleanPath(op, originalPath)
	if err != nil {
		return record.Record{}, err
	}
	sandbox, err := m.cleanPath(op, sandboxPath)
	if err != nil {
		return record.Record{}, err
	}
	if original == sandbox {
		return record.Record{}, newError(CodeInvalidArgument, op, sandbox,
			"sandbox path must differ from original path", nil)
	}
	if err := m.checkResolvable(op, sandbox); err != nil {
		return record.Record{}, err
	}

	m.locks.Lock(sandbox)
	defer m.locks.Unlock(sandbox)

	if err := m.checkNoRecord(ctx, op, sandbox); err != nil {
		return record.Record{}, err
	}

	exists, err := m.tableExists(ctx, op, original)
	if err != nil {
		return record.Record{}, err
	}
	if !exists {
		return record.Record{}, newError(CodeNotFound, op, original, "original table does not exist", nil)
	}
	exists, err = m.tableExists(ctx, op, sandbox)
	if err != nil {
		return record.Record{}, err
	}
	if exists {
		return record.Record{}, newError(CodeAlreadyExists, op, sandbox, "table already exists", nil)
	}

	families, err := m.getFamilies(ctx, op, original)
	if err != nil {
		return record.Record{}, err
	}
	derived, err := shadow.DeriveSchema(families)
	if err != nil {
		return record.Record{}, newError(CodeInvalidSchema, op, original, "cannot derive sandbox schema", err)
	}

	rec := record.Record{
		ID:           m.opts.IDs.Generate(),
		OriginalPath: original,
		SandboxPath:  sandbox,
		ShadowFamily: shadow.FamilyName,
		State:        record.StateCreating,
		CreatedAt:    m.opts.Clock.Now(),
	}
	if err := m.metadata.Insert(ctx, rec); err != nil {
		if errdefs.IsAlreadyExists(err) {
			return record.Record{}, newError(CodeConflict, op, sandbox,
				"another operation claimed this path", err)
		}
		return record.Record{}, fmt.Errorf("%s %s: %w", op, sandbox, err)
	}
	m.logger.Debug("sandbox record claimed", "sandbox", sandbox, "id", rec.ID)

	uncertain := false
	err = m.call(ctx, op, sandbox, func(ctx context.Context) error {
		err := m.cluster.CreateTable(ctx, sandbox, derived)
		if err != nil && uncertain && errdefs.IsAlreadyExists(err) {
			// An earlier interrupted attempt created the table.
			return nil
		}
		if landedUnknown(err) {
			uncertain = true
		}
		return err
	})
	if err != nil {
		return record.Record{}, m.rollbackCreate(ctx, rec, uncertain, m.clusterError(op, sandbox, err))
	}

	rec.State = record.StateActive
	data, err := NewArtifact(rec).Encode()
	if err == nil {
		err = m.files.WriteFile(ArtifactPath(sandbox), data)
	}
	if err != nil {
		rec.State = record.StateCreating
		return record.Record{}, m.rollbackCreate(ctx, rec, true,
			fmt.Errorf("%s %s: write metadata artifact: %w", op, sandbox, err))
	}

	if err := m.metadata.Transition(ctx, sandbox, record.StateCreating, record.StateActive); err != nil {
		rec.State = record.StateCreating
		return record.Record{}, m.rollbackCreate(ctx, rec, true,
			fmt.Errorf("%s %s: activate record: %w", op, sandbox, err))
	}

	if err := m.metadata.TouchRecent(ctx, m.opts.User, sandbox); err != nil {
		m.logger.Error("failed to update recent sandboxes",
			"sandbox", sandbox,
			"user", m.opts.User,
			"error", err,
		)
	}

	m.logger.Info("sandbox created",
		"sandbox", sandbox,
		"original", original,
		"id", rec.ID,
		"families", shadow.Sorted(derived),
	)
	return rec, nil
}

// landedUnknown reports whether a failed cluster call may still have been
// applied: its deadline passed or the caller went away after the request
// was sent.
func landedUnknown(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

// rollbackCreate undoes a partially built sandbox and returns cause joined
// with any cleanup failure. Cleanup runs even if ctx was cancelled.
func (m *Manager) rollbackCreate(ctx context.Context, rec record.Record, dropTable bool, cause error) error {
	ctx = context.WithoutCancel(ctx)
	sandbox := rec.SandboxPath
	errs := []error{cause}

	if dropTable {
		err := m.call(ctx, "create rollback", sandbox, func(ctx context.Context) error {
			return m.cluster.DropTable(ctx, sandbox)
		})
		if err != nil && !errdefs.IsNotFound(err) {
			errs = append(errs, fmt.Errorf("rollback: drop table %s: %w", sandbox, err))
		}
	}
	if err := m.files.Remove(ArtifactPath(sandbox)); err != nil {
		errs = append(errs, fmt.Errorf("rollback: remove artifact: %w", err))
	}
	if err := m.metadata.Remove(ctx, sandbox); err != nil && !errdefs.IsNotFound(err) {
		errs = append(errs, fmt.Errorf("rollback: remove record: %w", err))
	}

	if len(errs) == 1 {
		m.logger.Warn("sandbox create rolled back", "sandbox", sandbox, "error", cause)
		return cause
	}
	for _, err := range errs[1:] {
		m.logger.Error("sandbox create rollback incomplete", "sandbox", sandbox, "error", err)
	}
	return errors.Join(errs...)
}

// Delete removes the sandbox at sandboxPath: its table, metadata artifact,
// record and recent-list entries.
//
// A table already missing from the cluster is tolerated. If the table
// cannot be dropped the sandbox is left active and the error returned.
func (m *Manager) Delete(ctx context.Context, sandboxPath string) error {
	const op = "delete"

	sandbox, err := m.cleanPath(op, sandboxPath)
	if err != nil {
		return err
	}
	if err := m.checkResolvable(op, sandbox); err != nil {
		return err
	}

	m.locks.Lock(sandbox)
	defer m.locks.Unlock(sandbox)

	rec, err := m.metadata.Lookup(ctx, sandbox)
	if errdefs.IsNotFound(err) {
		return newError(CodeNotFound, op, sandbox, "no such sandbox", nil)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, sandbox, err)
	}
	if rec.State != record.StateActive {
		return newError(CodeConflict, op, sandbox,
			fmt.Sprintf("sandbox is %s by another operation", rec.State), nil)
	}

	if err := m.metadata.Transition(ctx, sandbox, record.StateActive, record.StateDeleting); err != nil {
		if errdefs.IsNotFound(err) || errdefs.IsConflict(err) {
			return newError(CodeConflict, op, sandbox, "sandbox changed during delete", err)
		}
		return fmt.Errorf("%s %s: %w", op, sandbox, err)
	}

	// Once the record is deleting, the bookkeeping below must finish even
	// if the caller goes away, or the path stays blocked until repair.
	cleanupCtx := context.WithoutCancel(ctx)

	err = m.call(ctx, op, sandbox, func(ctx context.Context) error {
		return m.cluster.DropTable(ctx, sandbox)
	})
	if err != nil && !errdefs.IsNotFound(err) {
		cause := m.clusterError(op, sandbox, err)
		revertErr := m.metadata.Transition(cleanupCtx, sandbox, record.StateDeleting, record.StateActive)
		if revertErr != nil {
			m.logger.Error("failed to restore sandbox state", "sandbox", sandbox, "error", revertErr)
			return errors.Join(cause, fmt.Errorf("restore state: %w", revertErr))
		}
		return cause
	}
	if err != nil {
		m.logger.Warn("sandbox table already absent", "sandbox", sandbox)
	}

	var errs []error
	if err := m.files.Remove(ArtifactPath(sandbox)); err != nil {
		errs = append(errs, fmt.Errorf("%s %s: remove metadata artifact: %w", op, sandbox, err))
	}
	if err := m.metadata.Remove(cleanupCtx, sandbox); err != nil {
		errs = append(errs, fmt.Errorf("%s %s: remove record: %w", op, sandbox, err))
	}
	if err := m.metadata.RemoveRecent(cleanupCtx, sandbox); err != nil {
		errs = append(errs, fmt.Errorf("%s %s: remove from recent list: %w", op, sandbox, err))
	}
	if len(errs) > 0 {
		for _, err := range errs {
			m.logger.Error("sandbox delete incomplete", "sandbox", sandbox, "error", err)
		}
		return errors.Join(errs...)
	}

	m.logger.Info("sandbox deleted", "sandbox", sandbox, "original", rec.OriginalPath, "id", rec.ID)
	return nil
}

// Get returns the active record for sandboxPath.
func (m *Manager) Get(ctx context.Context, sandboxPath string) (record.Record, error) {
	const op = "get"

	sandbox, err := m.cleanPath(op, sandboxPath)
	if err != nil {
		return record.Record{}, err
	}
	rec, err := m.metadata.Lookup(ctx, sandbox)
	if errdefs.IsNotFound(err) || (err == nil && rec.State != record.StateActive) {
		return record.Record{}, newError(CodeNotFound, op, sandbox, "no such sandbox", nil)
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("%s %s: %w", op, sandbox, err)
	}
	return rec, nil
}

// List returns active sandboxes ordered by creation time. A non-empty
// originalPath restricts the result to sandboxes of that table.
func (m *Manager) List(ctx context.Context, originalPath string) ([]record.Record, error) {
	const op = "list"

	original := ""
	if originalPath != "" {
		var err error
		if original, err = m.cleanPath(op, originalPath); err != nil {
			return nil, err
		}
	}
	records, err := m.metadata.ListActive(ctx, original)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// Recent returns the configured user's recently created sandboxes, most
// recent first.
func (m *Manager) Recent(ctx context.Context) ([]string, error) {
	paths, err := m.metadata.ListRecent(ctx, m.opts.User)
	if err != nil {
		return nil, fmt.Errorf("recent: %w", err)
	}
	return paths, nil
}

// Info describes a production table and its sandboxes.
type Info struct {
	OriginalPath string          `json:"original_path"`
	Families     []string        `json:"families"`
	Sandboxes    []record.Record `json:"sandboxes"`
}

// Info returns the families of originalPath and its active sandboxes.
func (m *Manager) Info(ctx context.Context, originalPath string) (Info, error) {
	const op = "info"

	original, err := m.cleanPath(op, originalPath)
	if err != nil {
		return Info{}, err
	}
	exists, err := m.tableExists(ctx, op, original)
	if err != nil {
		return Info{}, err
	}
	if !exists {
		return Info{}, newError(CodeNotFound, op, original, "table does not exist", nil)
	}
	families, err := m.getFamilies(ctx, op, original)
	if err != nil {
		return Info{}, err
	}
	sandboxes, err := m.metadata.ListActive(ctx, original)
	if err != nil {
		return Info{}, fmt.Errorf("%s %s: %w", op, original, err)
	}
	return Info{
		OriginalPath: original,
		Families:     shadow.Sorted(families),
		Sandboxes:    sandboxes,
	}, nil
}

func (m *Manager) cleanPath(op, p string) (string, error) {
	clean, err := clusterpath.Clean(p)
	if err != nil {
		return "", newError(CodeInvalidArgument, op, p, "invalid table path", err)
	}
	if clean == "/" {
		return "", newError(CodeInvalidArgument, op, clean, "table path must name a table", nil)
	}
	return clean, nil
}

// checkResolvable fails early when the sandbox's artifact has no mount.
func (m *Manager) checkResolvable(op, sandbox string) error {
	if _, err := m.files.Resolve(ArtifactPath(sandbox)); err != nil {
		var unresolved *clusterpath.UnresolvedPathError
		if errors.As(err, &unresolved) {
			return newError(CodeUnresolvedPath, op, sandbox, "no cluster mount for metadata artifact", err)
		}
		return fmt.Errorf("%s %s: %w", op, sandbox, err)
	}
	return nil
}

// checkNoRecord fails if any record, in any state, holds sandbox.
func (m *Manager) checkNoRecord(ctx context.Context, op, sandbox string) error {
	rec, err := m.metadata.Lookup(ctx, sandbox)
	if errdefs.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, sandbox, err)
	}
	if rec.State == record.StateActive {
		return newError(CodeAlreadyExists, op, sandbox,
			fmt.Sprintf("sandbox already exists (original %s)", rec.OriginalPath), nil)
	}
	return newError(CodeConflict, op, sandbox,
		fmt.Sprintf("sandbox is %s by another operation", rec.State), nil)
}

func (m *Manager) tableExists(ctx context.Context, op, path string) (bool, error) {
	var exists bool
	err := m.call(ctx, op, path, func(ctx context.Context) error {
		var err error
		exists, err = m.cluster.TableExists(ctx, path)
		return err
	})
	if err != nil {
		return false, m.clusterError(op, path, err)
	}
	return exists, nil
}

func (m *Manager) getFamilies(ctx context.Context, op, path string) (mapset.Set[string], error) {
	var families mapset.Set[string]
	err := m.call(ctx, op, path, func(ctx context.Context) error {
		var err error
		families, err = m.cluster.GetFamilies(ctx, path)
		return err
	})
	if err != nil {
		return nil, m.clusterError(op, path, err)
	}
	return families, nil
}

// clusterError maps a table-storage error into the sandbox taxonomy.
func (m *Manager) clusterError(op, path string, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errdefs.IsNotFound(err):
		return newError(CodeNotFound, op, path, "table does not exist", err)
	case errdefs.IsAlreadyExists(err):
		return newError(CodeAlreadyExists, op, path, "table already exists", err)
	case errdefs.IsInvalidArgument(err):
		return newError(CodeInvalidArgument, op, path, "rejected by cluster", err)
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}
