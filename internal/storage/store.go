// Package storage is the durable side store shared by all runs: a
// collection-independent reverse-geocoding cache and a run-history log,
// backed by SQLite. Nearby coordinates stay resolved even when a
// collection's snapshot is invalidated.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store defines the interface for snapsort's durable data operations.
type Store interface {
	GetLocation(ctx context.Context, key string) (string, bool, error)
	PutLocation(ctx context.Context, key, name string) error
	RecordRun(ctx context.Context, run *RunRecord) error
	RecentRuns(ctx context.Context, limit int) ([]RunRecord, error)
	GetStats(ctx context.Context) (*Stats, error)
	PurgeAll(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	getLocation *sql.Stmt
	putLocation *sql.Stmt
	insertRun   *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getLocation, err = s.db.Prepare(`
		SELECT place_name FROM locations WHERE coord_key = ?
	`)
	if err != nil {
		return err
	}

	s.putLocation, err = s.db.Prepare(`
		INSERT INTO locations (coord_key, place_name) VALUES (?, ?)
		ON CONFLICT(coord_key) DO UPDATE SET place_name = excluded.place_name
	`)
	if err != nil {
		return err
	}

	s.insertRun, err = s.db.Prepare(`
		INSERT INTO runs (id, source_identity, started_at, finished_at, files, duplicates, errors, events, from_cache)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// GetLocation looks up a quantized coordinate key. The second return value
// reports whether the key was present.
func (s *SQLiteStore) GetLocation(ctx context.Context, key string) (string, bool, error) {
	var name string
	err := s.getLocation.QueryRowContext(ctx, key).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get location: %w", err)
	}
	return name, true, nil
}

// PutLocation stores or refreshes the place name for a coordinate key.
func (s *SQLiteStore) PutLocation(ctx context.Context, key, name string) error {
	if _, err := s.putLocation.ExecContext(ctx, key, name); err != nil {
		return fmt.Errorf("put location: %w", err)
	}
	return nil
}

// RecordRun inserts a run-history row. The run's ID is populated
// automatically when empty.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	var finished interface{}
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UTC().Format(time.RFC3339)
	}

	_, err := s.insertRun.ExecContext(ctx,
		run.ID, run.SourceIdentity,
		run.StartedAt.UTC().Format(time.RFC3339), finished,
		run.Files, run.Duplicates, run.Errors, run.Events, run.FromCache,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecentRuns returns the newest runs, most recent first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_identity, started_at, finished_at, files, duplicates, errors, events, from_cache
		FROM runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var startedStr string
		var finishedStr sql.NullString
		if err := rows.Scan(
			&r.ID, &r.SourceIdentity, &startedStr, &finishedStr,
			&r.Files, &r.Duplicates, &r.Errors, &r.Events, &r.FromCache,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt, _ = parseTimestamp(startedStr)
		if finishedStr.Valid {
			r.FinishedAt, _ = parseTimestamp(finishedStr.String)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []RunRecord{}
	}
	return runs, nil
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM locations").Scan(&stats.TotalLocations)
	if err != nil {
		return nil, fmt.Errorf("count locations: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	if stats.TotalRuns > 0 {
		err = s.db.QueryRowContext(ctx,
			"SELECT COALESCE(SUM(files), 0) FROM runs",
		).Scan(&stats.TotalFiles)
		if err != nil {
			return nil, fmt.Errorf("sum files: %w", err)
		}

		var lastStr string
		err = s.db.QueryRowContext(ctx, "SELECT MAX(started_at) FROM runs").Scan(&lastStr)
		if err != nil {
			return nil, fmt.Errorf("last run: %w", err)
		}
		stats.LastRun, _ = parseTimestamp(lastStr)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT source_identity, COUNT(*) as cnt FROM runs GROUP BY source_identity ORDER BY cnt DESC LIMIT 10",
	)
	if err != nil {
		return nil, fmt.Errorf("top sources: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, err
		}
		stats.TopSources = append(stats.TopSources, sc)
	}

	return stats, rows.Err()
}

// PurgeAll deletes all locations and run history.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM locations",
		"DELETE FROM runs",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.getLocation, s.putLocation, s.insertRun}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
