// Package sandbox manages the lifecycle of sandbox tables.
//
// A sandbox is a copy of a production table's schema plus one reserved
// column family. The Manager ties four collaborators together:
//
//   - tablestore.Cluster creates and drops the table itself
//   - shadow.DeriveSchema computes the sandbox family set
//   - MetadataStore persists the sandbox record and the recent list
//   - ArtifactFS writes the metadata artifact on the cluster mount
//
// # Atomicity
//
// Create and Delete move a record through creating -> active -> deleting.
// Only active records are visible to readers, so a sandbox appears and
// disappears as a unit. A Create that fails part-way drops whatever it
// built and returns the original cause, joined with any cleanup failure.
//
// # Concurrency
//
// Operations on the same sandbox path are serialised in-process with a
// named lock. Another process holding the path is detected through the
// persisted transient state and reported as a conflict rather than waited on.
//
// # Errors
//
// Every failure is a *Error carrying a Code. The codes also wrap the
// matching containerd/errdefs class so callers may use either
// IsNotFound(err) or errdefs.IsNotFound(err).
package sandbox
