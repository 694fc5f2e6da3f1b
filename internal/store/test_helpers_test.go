package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/sandbox/internal/record"
)

// createTestStore creates a new store backed by a temp file for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a record with minimal required fields.
func createTestRecord(id, sandboxPath, originalPath string, state record.State, createdAt int64) record.Record {
	return record.Record{
		ID:           id,
		SandboxPath:  sandboxPath,
		OriginalPath: originalPath,
		ShadowFamily: "_shadow",
		State:        state,
		CreatedAt:    time.Unix(createdAt, 0).UTC(),
	}
}
