package store

import (
	"database/sql"
	"fmt"
)

func migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			id         TEXT PRIMARY KEY,
			source     TEXT NOT NULL DEFAULT '',
			fetched_at TEXT NOT NULL,
			count      INTEGER NOT NULL DEFAULT 0
		)`,

		// One row per catalog, in registry order
		`CREATE TABLE IF NOT EXISTS snapshot_catalogs (
			snapshot_id TEXT NOT NULL REFERENCES snapshots(id),
			position    INTEGER NOT NULL,
			name        TEXT NOT NULL,
			parent_name TEXT NOT NULL DEFAULT '',
			type        TEXT NOT NULL DEFAULT '',
			body        TEXT NOT NULL,
			PRIMARY KEY (snapshot_id, position)
		)`,

		`CREATE INDEX IF NOT EXISTS snapshots_fetched_at ON snapshots (fetched_at)`,
	}

	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", truncate(s, 60), err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
