package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/sandbox/internal/record"
)

// Insert adds a new sandbox record.
// Uses ON CONFLICT(sandbox_path) DO NOTHING and reports ErrExists when the
// path already has a record, whatever its state.
func (s *Store) Insert(ctx context.Context, rec record.Record) error {
	if !rec.State.Valid() {
		return fmt.Errorf("insert record: invalid state %q", rec.State)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sandboxes
		(id, sandbox_path, original_path, shadow_family, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sandbox_path) DO NOTHING
	`,
		rec.ID,
		rec.SandboxPath,
		rec.OriginalPath,
		rec.ShadowFamily,
		string(rec.State),
		rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert record: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("insert record %s: %w", rec.SandboxPath, ErrExists)
	}
	return nil
}

// Transition moves the record at sandboxPath from one state to another.
//
// Returns ErrNotFound if there is no record, ErrStateMismatch if the record
// is not in the expected state.
func (s *Store) Transition(ctx context.Context, sandboxPath string, from, to record.State) error {
	if !to.Valid() {
		return fmt.Errorf("transition %s: invalid state %q", sandboxPath, to)
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			`SELECT state FROM sandboxes WHERE sandbox_path = ?`, sandboxPath,
		).Scan(&current)
		if isNoRows(err) {
			return fmt.Errorf("transition %s: %w", sandboxPath, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("transition %s: %w", sandboxPath, err)
		}
		if record.State(current) != from {
			return fmt.Errorf("transition %s: %s, expected %s: %w", sandboxPath, current, from, ErrStateMismatch)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE sandboxes SET state = ? WHERE sandbox_path = ?`, string(to), sandboxPath,
		)
		if err != nil {
			return fmt.Errorf("transition %s: %w", sandboxPath, err)
		}
		return nil
	})
}

// Remove deletes the record at sandboxPath.
// Returns ErrNotFound if there is none.
func (s *Store) Remove(ctx context.Context, sandboxPath string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sandboxes WHERE sandbox_path = ?`, sandboxPath)
	if err != nil {
		return fmt.Errorf("remove record: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove record: rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("remove record %s: %w", sandboxPath, ErrNotFound)
	}
	return nil
}

// Lookup returns the record at sandboxPath in any state.
func (s *Store) Lookup(ctx context.Context, sandboxPath string) (record.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sandbox_path, original_path, shadow_family, state, created_at
		FROM sandboxes
		WHERE sandbox_path = ?
	`, sandboxPath)

	rec, err := scanRecord(row)
	if isNoRows(err) {
		return record.Record{}, fmt.Errorf("lookup %s: %w", sandboxPath, ErrNotFound)
	}
	if err != nil {
		return record.Record{}, fmt.Errorf("lookup %s: %w", sandboxPath, err)
	}
	return rec, nil
}

// ListActive returns active records ordered by creation time.
// When originalPath is non-empty only sandboxes of that table are returned.
func (s *Store) ListActive(ctx context.Context, originalPath string) ([]record.Record, error) {
	query := `
		SELECT id, sandbox_path, original_path, shadow_family, state, created_at
		FROM sandboxes
		WHERE state = 'active'`
	args := []any{}
	if originalPath != "" {
		query += ` AND original_path = ?`
		args = append(args, originalPath)
	}
	query += ` ORDER BY created_at ASC, sandbox_path COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// ListStale returns records stuck in a transient state, oldest first.
func (s *Store) ListStale(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sandbox_path, original_path, shadow_family, state, created_at
		FROM sandboxes
		WHERE state != 'active'
		ORDER BY created_at ASC, sandbox_path COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list stale records: %w", err)
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list stale records: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (record.Record, error) {
	var (
		rec       record.Record
		state     string
		createdAt int64
	)
	if err := row.Scan(&rec.ID, &rec.SandboxPath, &rec.OriginalPath, &rec.ShadowFamily, &state, &createdAt); err != nil {
		return record.Record{}, err
	}

	st, err := record.ParseState(state)
	if err != nil {
		return record.Record{}, err
	}
	rec.State = st
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return rec, nil
}
