package store

import (
	"context"
	"database/sql"
	"fmt"
)

// TouchRecent moves sandboxPath to the top of user's recent list, adding it
// if absent, and trims the list to RecentLimit entries.
func (s *Store) TouchRecent(ctx context.Context, user, sandboxPath string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var next int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(touched_seq), 0) + 1 FROM recent_sandboxes WHERE user_name = ?`, user,
		).Scan(&next)
		if err != nil {
			return fmt.Errorf("touch recent: next seq: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO recent_sandboxes (user_name, sandbox_path, touched_seq)
			VALUES (?, ?, ?)
			ON CONFLICT(user_name, sandbox_path) DO UPDATE SET touched_seq = excluded.touched_seq
		`, user, sandboxPath, next)
		if err != nil {
			return fmt.Errorf("touch recent: upsert: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM recent_sandboxes
			WHERE user_name = ? AND sandbox_path NOT IN (
				SELECT sandbox_path FROM recent_sandboxes
				WHERE user_name = ?
				ORDER BY touched_seq DESC
				LIMIT ?
			)
		`, user, user, RecentLimit)
		if err != nil {
			return fmt.Errorf("touch recent: trim: %w", err)
		}
		return nil
	})
}

// RemoveRecent drops sandboxPath from every user's recent list.
// Removing a path that is not listed is not an error.
func (s *Store) RemoveRecent(ctx context.Context, sandboxPath string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM recent_sandboxes WHERE sandbox_path = ?`, sandboxPath,
	); err != nil {
		return fmt.Errorf("remove recent: %w", err)
	}
	return nil
}

// ListRecent returns user's recent sandbox paths, most recent first.
func (s *Store) ListRecent(ctx context.Context, user string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sandbox_path FROM recent_sandboxes
		WHERE user_name = ?
		ORDER BY touched_seq DESC
	`, user)
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("list recent: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
