package record

import (
	"fmt"
	"time"
)

// State is the lifecycle state of a sandbox record.
type State string

const (
	// StateCreating marks a record whose table is still being created.
	StateCreating State = "creating"

	// StateActive marks a fully created sandbox.
	StateActive State = "active"

	// StateDeleting marks a record whose table is being dropped.
	StateDeleting State = "deleting"
)

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateCreating, StateActive, StateDeleting:
		return true
	}
	return false
}

// ParseState converts a stored state string back into a State.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown sandbox state %q", s)
	}
	return st, nil
}

// Record is the metadata kept for one sandbox table.
type Record struct {
	// ID is a time-sortable UUIDv7. It names the metadata artifact.
	ID string `json:"id" yaml:"id"`

	// OriginalPath is the production table the sandbox was derived from.
	OriginalPath string `json:"original_path" yaml:"original_path"`

	// SandboxPath is the sandbox table path. Unique across records.
	SandboxPath string `json:"sandbox_path" yaml:"sandbox_path"`

	// ShadowFamily is the reserved column family added to the sandbox.
	ShadowFamily string `json:"shadow_family" yaml:"shadow_family"`

	State     State     `json:"state" yaml:"state"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Clock supplies creation timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
