package tablestore

import (
	"context"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/hashicorp/go-memdb"
)

const memTable = "tables"

// tableEntry is the row stored in the in-memory catalog.
type tableEntry struct {
	Path     string
	Families []string
}

// Memory is an in-memory Cluster backed by go-memdb.
//
// Thread-safety: go-memdb serialises write transactions and gives readers
// consistent snapshots, so Memory is safe for concurrent use.
type Memory struct {
	db *memdb.MemDB
}

// NewMemory creates an empty in-memory cluster.
func NewMemory() (*Memory, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			memTable: {
				Name: memTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Path"},
					},
				},
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("create memdb: %w", err)
	}
	return &Memory{db: db}, nil
}

// TableExists reports whether a table exists at path.
func (m *Memory) TableExists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	txn := m.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(memTable, "id", path)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", path, err)
	}
	return raw != nil, nil
}

// CreateTable creates a table with the given families.
func (m *Memory) CreateTable(ctx context.Context, path string, families mapset.Set[string]) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateFamilies(path, families); err != nil {
		return err
	}

	txn := m.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(memTable, "id", path)
	if err != nil {
		return fmt.Errorf("create table %s: %w", path, err)
	}
	if raw != nil {
		return errTableExists(path)
	}

	names := families.ToSlice()
	slices.Sort(names)
	if err := txn.Insert(memTable, &tableEntry{Path: path, Families: names}); err != nil {
		return fmt.Errorf("create table %s: %w", path, err)
	}
	txn.Commit()
	return nil
}

// DropTable removes the table at path.
func (m *Memory) DropTable(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	txn := m.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(memTable, "id", path)
	if err != nil {
		return fmt.Errorf("drop table %s: %w", path, err)
	}
	if raw == nil {
		return errTableNotFound(path)
	}
	if err := txn.Delete(memTable, raw); err != nil {
		return fmt.Errorf("drop table %s: %w", path, err)
	}
	txn.Commit()
	return nil
}

// GetFamilies returns the column families of the table at path.
func (m *Memory) GetFamilies(ctx context.Context, path string) (mapset.Set[string], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := m.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(memTable, "id", path)
	if err != nil {
		return nil, fmt.Errorf("get families %s: %w", path, err)
	}
	if raw == nil {
		return nil, errTableNotFound(path)
	}
	return mapset.NewSet(raw.(*tableEntry).Families...), nil
}

// Tables returns every table path in the catalog, sorted.
func (m *Memory) Tables(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := m.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(memTable, "id")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	paths := []string{}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		paths = append(paths, obj.(*tableEntry).Path)
	}
	return paths, nil
}
