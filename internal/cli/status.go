package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/snapsort/internal/snapshot"
	"github.com/runnerr0/snapsort/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	Snapshots         int               `json:"snapshots"`
	TotalLocations    int64             `json:"total_locations"`
	TotalRuns         int64             `json:"total_runs"`
	TotalFiles        int64             `json:"total_files"`
	LastRun           string            `json:"last_run,omitempty"`
	TopSources        []sourceCountJSON `json:"top_sources"`
	RecentRuns        []runJSON         `json:"recent_runs"`
}

type sourceCountJSON struct {
	Source string `json:"source"`
	Count  int64  `json:"count"`
}

type runJSON struct {
	Source     string `json:"source"`
	StartedAt  string `json:"started_at"`
	Files      int64  `json:"files"`
	Duplicates int64  `json:"duplicates"`
	Events     int64  `json:"events"`
	FromCache  bool   `json:"from_cache"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	snapDir, err := snapshotDirFor(cfg)
	if err != nil {
		return err
	}
	dbPath, err := dbPathFor(cfg)
	if err != nil {
		return err
	}

	return c.executeWithStore(store, db, snapshot.NewStore(snapDir), dbPath)
}

// executeWithStore runs status against provided dependencies (for testing).
func (c *StatusCommand) executeWithStore(store *storage.SQLiteStore, db *sql.DB, snaps *snapshot.Store, dbPath string) error {
	ctx := context.Background()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	limit := c.Runs
	if limit <= 0 {
		limit = 5
	}
	runs, err := store.RecentRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("recent runs: %w", err)
	}

	metas, err := snaps.List()
	if err != nil {
		// A snapshot count of zero would misread as an empty cache.
		fmt.Fprintf(os.Stderr, "Warning: cannot list snapshots: %v\n", err)
		metas = nil
	}

	dbSize := getDatabaseSize(db, dbPath)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(stats, runs, len(metas), dbPath, dbSize)
	}
	return c.printStatusHuman(stats, runs, len(metas), dbPath, dbSize)
}

func (c *StatusCommand) printStatusHuman(stats *storage.Stats, runs []storage.RunRecord, snapshots int, dbPath string, dbSize int64) error {
	fmt.Println("Snapsort Status")
	fmt.Println("===============")
	fmt.Printf("Version:     %s\n", c.version)
	fmt.Printf("Database:    %s (%s)\n", dbPath, formatBytes(dbSize))
	fmt.Printf("Snapshots:   %d\n", snapshots)
	fmt.Printf("Locations:   %s\n", formatNumber(stats.TotalLocations))
	fmt.Printf("Runs:        %s\n", formatNumber(stats.TotalRuns))
	fmt.Printf("Files seen:  %s\n", formatNumber(stats.TotalFiles))
	if !stats.LastRun.IsZero() {
		fmt.Printf("Last run:    %s\n", stats.LastRun.Local().Format("2006-01-02 15:04"))
	}

	if len(stats.TopSources) > 0 {
		fmt.Println()
		fmt.Println("Top Sources:")
		for _, s := range stats.TopSources {
			fmt.Printf("  %-40s %s\n", shortenPath(s.Source, 40), formatNumber(s.Count))
		}
	}

	if len(runs) > 0 {
		fmt.Println()
		fmt.Println("Recent Runs:")
		for _, r := range runs {
			cached := ""
			if r.FromCache {
				cached = " (cached)"
			}
			fmt.Printf("  %s  %-40s %s files, %s events%s\n",
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				shortenPath(r.SourceIdentity, 40),
				formatNumber(r.Files), formatNumber(r.Events), cached)
		}
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(stats *storage.Stats, runs []storage.RunRecord, snapshots int, dbPath string, dbSize int64) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		Snapshots:         snapshots,
		TotalLocations:    stats.TotalLocations,
		TotalRuns:         stats.TotalRuns,
		TotalFiles:        stats.TotalFiles,
		TopSources:        make([]sourceCountJSON, len(stats.TopSources)),
		RecentRuns:        make([]runJSON, len(runs)),
	}
	if !stats.LastRun.IsZero() {
		out.LastRun = stats.LastRun.UTC().Format(time.RFC3339)
	}
	for i, s := range stats.TopSources {
		out.TopSources[i] = sourceCountJSON{Source: s.Source, Count: s.Count}
	}
	for i, r := range runs {
		out.RecentRuns[i] = runJSON{
			Source:     r.SourceIdentity,
			StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
			Files:      r.Files,
			Duplicates: r.Duplicates,
			Events:     r.Events,
			FromCache:  r.FromCache,
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// getDatabaseSize returns the database file size in bytes. For on-disk
// databases it uses os.Stat; for in-memory databases it queries
// page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// shortenPath trims long paths from the left, keeping the informative tail.
func shortenPath(p string, max int) string {
	if len(p) <= max {
		return p
	}
	return "..." + p[len(p)-max+3:]
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}
