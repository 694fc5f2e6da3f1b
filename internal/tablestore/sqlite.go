package tablestore

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/sandbox/internal/store"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tables (
    path TEXT PRIMARY KEY
);

CREATE TABLE IF NOT EXISTS column_families (
    table_path TEXT NOT NULL REFERENCES tables(path) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    PRIMARY KEY (table_path, name)
);
`

// SQLite is a Cluster whose catalog lives in a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the cluster catalog at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := store.OpenDB(path, sqliteSchema)
	if err != nil {
		return nil, fmt.Errorf("open cluster catalog: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the catalog database.
func (c *SQLite) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// TableExists reports whether a table exists at path.
func (c *SQLite) TableExists(ctx context.Context, path string) (bool, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tables WHERE path = ?`, path).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", path, err)
	}
	return n > 0, nil
}

// CreateTable creates a table and its families in one transaction.
func (c *SQLite) CreateTable(ctx context.Context, path string, families mapset.Set[string]) error {
	if err := validateFamilies(path, families); err != nil {
		return err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create table %s: begin tx: %w", path, err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `INSERT INTO tables (path) VALUES (?) ON CONFLICT(path) DO NOTHING`, path)
	if err != nil {
		return fmt.Errorf("create table %s: %w", path, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("create table %s: rows affected: %w", path, err)
	}
	if rowsAffected == 0 {
		return errTableExists(path)
	}

	names := families.ToSlice()
	slices.Sort(names)
	for _, name := range names {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO column_families (table_path, name) VALUES (?, ?)`, path, name,
		); err != nil {
			return fmt.Errorf("create table %s: family %s: %w", path, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create table %s: commit: %w", path, err)
	}
	return nil
}

// DropTable removes the table at path and its families.
func (c *SQLite) DropTable(ctx context.Context, path string) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM tables WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("drop table %s: %w", path, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("drop table %s: rows affected: %w", path, err)
	}
	if rowsAffected == 0 {
		return errTableNotFound(path)
	}
	return nil
}

// GetFamilies returns the column families of the table at path.
func (c *SQLite) GetFamilies(ctx context.Context, path string) (mapset.Set[string], error) {
	exists, err := c.TableExists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errTableNotFound(path)
	}

	rows, err := c.db.QueryContext(ctx, `SELECT name FROM column_families WHERE table_path = ?`, path)
	if err != nil {
		return nil, fmt.Errorf("get families %s: %w", path, err)
	}
	defer rows.Close()

	families := mapset.NewSet[string]()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("get families %s: %w", path, err)
		}
		families.Add(name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get families %s: %w", path, err)
	}
	return families, nil
}

// Tables returns every table path in the catalog, sorted.
func (c *SQLite) Tables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT path FROM tables ORDER BY path COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
