package cli

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/snapsort/internal/snapshot"
	"github.com/runnerr0/snapsort/internal/storage"
)

// setDB allows tests to inject a database connection.
func (c *PurgeCommand) setDB(db *sql.DB) {
	c.db = db
}

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	// Confirmation prompt unless --force
	if !c.Force {
		fmt.Println("⚠ WARNING: This will permanently delete ALL snapsort data.")
		fmt.Println("  - All collection snapshots")
		fmt.Println("  - All cached place names")
		fmt.Println("  - All run history")
		fmt.Println()
		fmt.Println("Your photos and videos are NOT touched.")
		fmt.Println()
		fmt.Print(`Type "PURGE" to confirm: `)

		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return fmt.Errorf("aborted: no input received")
		}
		input := strings.TrimSpace(scanner.Text())
		if input != "PURGE" {
			return fmt.Errorf("aborted: confirmation text did not match")
		}
	}

	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	// Open or use injected DB
	db := c.db
	if db == nil {
		dbPath, pathErr := dbPathFor(cfg)
		if pathErr != nil {
			return fmt.Errorf("resolve db path: %w", pathErr)
		}
		db, err = sql.Open("sqlite3", dbPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		runner := storage.NewMigrationRunner(db)
		if err := runner.Run(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.PurgeAll(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}

	snapDir, err := snapshotDirFor(cfg)
	if err != nil {
		return fmt.Errorf("resolve snapshot dir: %w", err)
	}
	removed, err := snapshot.NewStore(snapDir).PurgeAll()
	if err != nil {
		return fmt.Errorf("purge snapshots: %w", err)
	}

	// Output
	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"purged":            true,
			"snapshots_removed": removed,
		}
		enc := json.NewEncoder(os.Stdout)
		return enc.Encode(out)
	}

	fmt.Printf("Purged all data (%d snapshots removed). Snapsort cache is empty.\n", removed)
	return nil
}
