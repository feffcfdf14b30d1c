package storage

import "database/sql"

// migrateV001 creates the initial snapsort schema: the durable location
// cache and the run-history table. Every statement uses IF NOT EXISTS for
// idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS locations (
			coord_key   TEXT PRIMARY KEY,
			place_name  TEXT NOT NULL,
			resolved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS runs (
			id              TEXT PRIMARY KEY,
			source_identity TEXT NOT NULL,
			started_at      DATETIME NOT NULL,
			finished_at     DATETIME,
			files           INTEGER NOT NULL DEFAULT 0,
			duplicates      INTEGER NOT NULL DEFAULT 0,
			errors          INTEGER NOT NULL DEFAULT 0,
			events          INTEGER NOT NULL DEFAULT 0,
			from_cache      BOOLEAN NOT NULL DEFAULT 0
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_source  ON runs(source_identity)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
