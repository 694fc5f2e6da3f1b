// Package store provides SQLite-backed durable storage for sandbox metadata.
//
// The store keeps:
//   - Sandboxes: one record per sandbox table path (UNIQUE sandbox_path)
//   - Recent sandboxes: a per-user most-recently-used list, capped in size
//
// # State Transitions
//
// Records are inserted in the creating state and move between states only
// through Transition, which is a compare-and-set executed inside a
// transaction. A transition whose expected state does not match fails with
// ErrStateMismatch, so two writers can never both advance the same record.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// OpenDB is shared with the local table backend in internal/tablestore so
// both databases get the same pragmas and connection limits.
//
// Errors wrap containerd/errdefs classes so callers can classify them with
// errdefs.IsNotFound, errdefs.IsAlreadyExists and errdefs.IsConflict.
package store
