package storage

import "time"

// RunRecord summarizes one pipeline run over a source collection.
type RunRecord struct {
	ID             string
	SourceIdentity string
	StartedAt      time.Time
	FinishedAt     time.Time
	Files          int64
	Duplicates     int64
	Errors         int64
	Events         int64
	FromCache      bool
}

// Stats holds aggregate statistics about the snapsort database.
type Stats struct {
	TotalLocations int64
	TotalRuns      int64
	TotalFiles     int64
	LastRun        time.Time
	TopSources     []SourceCount
}

// SourceCount pairs a source collection with its run count.
type SourceCount struct {
	Source string
	Count  int64
}
