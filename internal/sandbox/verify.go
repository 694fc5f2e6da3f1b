package sandbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/containerd/errdefs"
	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/sandbox/internal/record"
	"github.com/roach88/sandbox/internal/shadow"
	"github.com/roach88/sandbox/internal/tablestore"
)

// Drift problems reported by Verify.
const (
	ProblemTableMissing    = "table missing from cluster"
	ProblemShadowMissing   = "shadow family missing"
	ProblemArtifactMissing = "metadata artifact missing"
	ProblemArtifactInvalid = "metadata artifact does not match record"
	ProblemStale           = "record abandoned mid-operation"
	ProblemUnrecorded      = "shadow table has no record"
)

// Drift is a disagreement between a sandbox record and the cluster.
type Drift struct {
	SandboxPath string       `json:"sandbox_path"`
	State       record.State `json:"state,omitempty"`
	Problem     string       `json:"problem"`
}

// Verify checks every active sandbox against the cluster and the mount,
// and reports records left behind by interrupted operations. When the
// cluster can enumerate its tables, tables carrying the shadow family
// without a record are reported too. Sandboxes are checked concurrently.
// The result is sorted by path.
func (m *Manager) Verify(ctx context.Context) ([]Drift, error) {
	const op = "verify"

	// Tables are listed before records. Create inserts its record before
	// the table exists and Delete drops the table before the record, so a
	// listed table with no record below is not an operation in flight.
	tables, err := m.listTables(ctx, op)
	if err != nil {
		return nil, err
	}

	active, err := m.metadata.ListActive(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	pending, err := m.metadata.ListStale(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		mu     sync.Mutex
		drifts []Drift
	)
	report := func(rec record.Record, problem string) {
		mu.Lock()
		defer mu.Unlock()
		drifts = append(drifts, Drift{SandboxPath: rec.SandboxPath, State: rec.State, Problem: problem})
	}

	recorded := mapset.NewThreadUnsafeSet[string]()
	for _, rec := range active {
		recorded.Add(rec.SandboxPath)
	}
	for _, rec := range pending {
		recorded.Add(rec.SandboxPath)
	}

	now := m.opts.Clock.Now()
	for _, rec := range pending {
		if now.Sub(rec.CreatedAt) >= m.opts.StaleAfter {
			report(rec, ProblemStale)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.opts.VerifyConcurrency)
	for _, rec := range active {
		g.Go(func() error {
			problems, err := m.verifyOne(gctx, rec)
			if err != nil {
				return err
			}
			for _, p := range problems {
				report(rec, p)
			}
			return nil
		})
	}
	for _, path := range tables {
		if recorded.Contains(path) {
			continue
		}
		g.Go(func() error {
			orphan, err := m.isOrphan(gctx, op, path)
			if err != nil {
				return err
			}
			if orphan {
				report(record.Record{SandboxPath: path}, ProblemUnrecorded)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(drifts, func(i, j int) bool {
		if drifts[i].SandboxPath != drifts[j].SandboxPath {
			return drifts[i].SandboxPath < drifts[j].SandboxPath
		}
		return drifts[i].Problem < drifts[j].Problem
	})
	return drifts, nil
}

// listTables returns the cluster's tables, or nil when the backend cannot
// enumerate them.
func (m *Manager) listTables(ctx context.Context, op string) ([]string, error) {
	lister, ok := m.cluster.(tablestore.Lister)
	if !ok {
		return nil, nil
	}
	var tables []string
	err := m.call(ctx, op, "/", func(ctx context.Context) error {
		var err error
		tables, err = lister.Tables(ctx)
		return err
	})
	if err != nil {
		return nil, m.clusterError(op, "/", err)
	}
	return tables, nil
}

// isOrphan reports whether path is a table with the shadow family that no
// record accounts for.
func (m *Manager) isOrphan(ctx context.Context, op, path string) (bool, error) {
	exists, err := m.tableExists(ctx, op, path)
	if err != nil || !exists {
		return false, err
	}
	families, err := m.getFamilies(ctx, op, path)
	if errdefs.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !shadow.IsSandboxSchema(families) {
		return false, nil
	}
	_, err = m.metadata.Lookup(ctx, path)
	if errdefs.IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", op, path, err)
	}
	return false, nil
}

func (m *Manager) verifyOne(ctx context.Context, rec record.Record) ([]string, error) {
	const op = "verify"
	var problems []string

	exists, err := m.tableExists(ctx, op, rec.SandboxPath)
	if err != nil {
		return nil, err
	}
	if !exists {
		problems = append(problems, ProblemTableMissing)
	} else {
		families, err := m.getFamilies(ctx, op, rec.SandboxPath)
		if err != nil {
			return nil, err
		}
		if !shadow.IsSandboxSchema(families) {
			problems = append(problems, ProblemShadowMissing)
		}
	}

	artifact := ArtifactPath(rec.SandboxPath)
	present, err := m.files.Exists(artifact)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, rec.SandboxPath, err)
	}
	if !present {
		return append(problems, ProblemArtifactMissing), nil
	}
	data, err := m.files.ReadFile(artifact)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, rec.SandboxPath, err)
	}
	a, err := DecodeArtifact(data)
	if err != nil || a.ID != rec.ID || a.Original != rec.OriginalPath {
		problems = append(problems, ProblemArtifactInvalid)
	}
	return problems, nil
}

// Repair clears a sandbox left in the creating or deleting state by a
// process that died mid-operation. Whatever exists of the table and the
// artifact is removed, then the record. Records younger than StaleAfter are
// assumed to belong to a live operation and are refused with CodeConflict.
//
// A table with the shadow family and no record is dropped along with any
// artifact. No operation in flight leaves a table without its record.
func (m *Manager) Repair(ctx context.Context, sandboxPath string) error {
	const op = "repair"

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
		return m.repairOrphan(ctx, op, sandbox)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, sandbox, err)
	}
	if rec.State == record.StateActive {
		return newError(CodeConflict, op, sandbox, "sandbox is active, use delete", nil)
	}
	if age := m.opts.Clock.Now().Sub(rec.CreatedAt); age < m.opts.StaleAfter {
		return newError(CodeConflict, op, sandbox,
			fmt.Sprintf("sandbox is %s and may still be in progress (age %s)", rec.State, age), nil)
	}

	err = m.call(ctx, op, sandbox, func(ctx context.Context) error {
		return m.cluster.DropTable(ctx, sandbox)
	})
	if err != nil && !errdefs.IsNotFound(err) {
		return m.clusterError(op, sandbox, err)
	}

	var errs []error
	if err := m.files.Remove(ArtifactPath(sandbox)); err != nil {
		errs = append(errs, fmt.Errorf("%s %s: remove metadata artifact: %w", op, sandbox, err))
	}
	if err := m.metadata.Remove(ctx, sandbox); err != nil && !errdefs.IsNotFound(err) {
		errs = append(errs, fmt.Errorf("%s %s: remove record: %w", op, sandbox, err))
	}
	if err := m.metadata.RemoveRecent(ctx, sandbox); err != nil {
		errs = append(errs, fmt.Errorf("%s %s: remove from recent list: %w", op, sandbox, err))
	}
	if err := errors.Join(errs...); err != nil {
		m.logger.Error("sandbox repair incomplete", "sandbox", sandbox, "error", err)
		return err
	}

	m.logger.Info("sandbox repaired", "sandbox", sandbox, "state", rec.State, "id", rec.ID)
	return nil
}

// repairOrphan drops an unrecorded table carrying the shadow family.
func (m *Manager) repairOrphan(ctx context.Context, op, sandbox string) error {
	orphan, err := m.isOrphan(ctx, op, sandbox)
	if err != nil {
		return err
	}
	if !orphan {
		return newError(CodeNotFound, op, sandbox, "no such sandbox", nil)
	}

	err = m.call(ctx, op, sandbox, func(ctx context.Context) error {
		return m.cluster.DropTable(ctx, sandbox)
	})
	if err != nil && !errdefs.IsNotFound(err) {
		return m.clusterError(op, sandbox, err)
	}
	if err := m.files.Remove(ArtifactPath(sandbox)); err != nil {
		return fmt.Errorf("%s %s: remove metadata artifact: %w", op, sandbox, err)
	}

	m.logger.Info("unrecorded sandbox table dropped", "sandbox", sandbox)
	return nil
}
