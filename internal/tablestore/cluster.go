package tablestore

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	mapset "github.com/deckarep/golang-set/v2"
)

// Cluster is a distributed table-storage system, seen as a black box.
// Every call honours ctx cancellation and deadlines.
type Cluster interface {
	TableExists(ctx context.Context, path string) (bool, error)
	CreateTable(ctx context.Context, path string, families mapset.Set[string]) error
	DropTable(ctx context.Context, path string) error
	GetFamilies(ctx context.Context, path string) (mapset.Set[string], error)
}

// Lister is implemented by backends that can enumerate their tables.
type Lister interface {
	Tables(ctx context.Context) ([]string, error)
}

// errTableNotFound builds the error reported for a missing table.
func errTableNotFound(path string) error {
	return fmt.Errorf("table %s: %w", path, errdefs.ErrNotFound)
}

// errTableExists builds the error reported for a duplicate table.
func errTableExists(path string) error {
	return fmt.Errorf("table %s: %w", path, errdefs.ErrAlreadyExists)
}

// validateFamilies rejects empty family sets and empty family names.
func validateFamilies(path string, families mapset.Set[string]) error {
	if families == nil || families.Cardinality() == 0 {
		return fmt.Errorf("create table %s: no column families: %w", path, errdefs.ErrInvalidArgument)
	}
	if families.Contains("") {
		return fmt.Errorf("create table %s: empty column family name: %w", path, errdefs.ErrInvalidArgument)
	}
	return nil
}
