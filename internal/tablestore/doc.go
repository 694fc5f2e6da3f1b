// Package tablestore is the table-storage collaborator of the sandbox
// manager: something that can tell whether a table exists, create one with a
// set of column families, drop it and report its families.
//
// Two backends implement Cluster:
//   - SQLite: a local cluster catalog persisted in a SQLite file, used by the
//     CLI so tables survive between invocations.
//   - Memory: an in-memory catalog on hashicorp/go-memdb, used by tests and
//     dry runs.
//
// Backends report missing and duplicate tables with errors wrapping
// errdefs.ErrNotFound and errdefs.ErrAlreadyExists. Transient failures should
// wrap errdefs.ErrUnavailable so the manager can retry them.
package tablestore
