// Package pipeline wires the two-phase run: parallel metadata extraction,
// a hard synchronization barrier, sequential rate-limited geocoding, and the
// pure clustering transform, all wrapped in the per-collection snapshot so
// a repeat run over an unchanged collection skips both phases.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/runnerr0/snapsort/internal/cluster"
	"github.com/runnerr0/snapsort/internal/config"
	"github.com/runnerr0/snapsort/internal/extract"
	"github.com/runnerr0/snapsort/internal/geocode"
	"github.com/runnerr0/snapsort/internal/media"
	"github.com/runnerr0/snapsort/internal/scan"
	"github.com/runnerr0/snapsort/internal/snapshot"
	"github.com/runnerr0/snapsort/internal/storage"
)

// Result is the outcome of one run, the interface handed to the CLI and to
// any external mover.
type Result struct {
	SourceIdentity string
	Groups         media.EventGroups
	Records        []*media.Record
	Errors         []media.FileError
	Duplicates     int
	FromCache      bool
	Geocode        geocode.Stats
	StartedAt      time.Time
	FinishedAt     time.Time
}

// EventCount returns the number of named event folders, excluding the
// ungrouped bucket.
func (r *Result) EventCount() int {
	n := len(r.Groups)
	if _, ok := r.Groups[media.UngroupedBucket]; ok {
		n--
	}
	return n
}

// Pipeline runs the scan / resolve / cluster sequence for one configuration.
type Pipeline struct {
	cfg       *config.Config
	patterns  []extract.Pattern
	snapshots *snapshot.Store
	store     storage.Store // may be nil
	log       *zap.Logger
}

// New builds a Pipeline. The pattern table is compiled once here; a
// malformed table is a configuration error and fails before any file is
// touched.
func New(cfg *config.Config, snapshots *snapshot.Store, store storage.Store, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	patterns, err := extract.CompileTable(cfg.Patterns)
	if err != nil {
		return nil, fmt.Errorf("pattern table: %w", err)
	}
	return &Pipeline{
		cfg:       cfg,
		patterns:  patterns,
		snapshots: snapshots,
		store:     store,
		log:       log,
	}, nil
}

// Run executes the pipeline over one source collection. refresh forces a
// full run even when a valid snapshot exists. On context cancellation the
// partial record set is snapshotted and returned with the context error; no
// partial event grouping is ever produced.
func (p *Pipeline) Run(ctx context.Context, source string, refresh bool) (*Result, error) {
	started := time.Now()

	identity, err := snapshot.Identity(source)
	if err != nil {
		return nil, err
	}

	res := &Result{
		SourceIdentity: identity,
		StartedAt:      started,
	}

	locations := geocode.NewCache()

	prior, priorErr := p.snapshots.Load(identity)
	if priorErr == nil {
		// A prior snapshot's location map is useful even when we rescan:
		// it saves geocoding requests for coordinates we already know.
		locations.Load(prior.Locations)
	}

	if !refresh && priorErr == nil && !prior.Meta.Partial {
		res.FromCache = true
		res.Records = prior.Records
		p.finish(ctx, res)
		return res, nil
	}

	// Phase 1: parallel extraction.
	registry := scan.NewRegistry()
	extractor := extract.New(p.patterns, p.cfg.Scan.PhotoExtensions, p.cfg.Scan.VideoExtensions)
	coordinator := scan.NewCoordinator(extractor, registry, p.cfg.Scan.Workers, p.cfg.Scan.SkipDirs, p.log)

	scanRes, err := coordinator.Run(ctx, source)
	if err != nil {
		if scanRes != nil && ctx.Err() != nil {
			// Cancelled mid-scan: keep what we have as a partial snapshot.
			res.Records = scanRes.Records
			res.Errors = scanRes.Errors
			p.saveSnapshot(res, locations, registry.Duplicates(), true)
		}
		return res, err
	}
	res.Records = scanRes.Records
	res.Errors = scanRes.Errors

	p.log.Info("scan complete",
		zap.Int("files", len(res.Records)),
		zap.Int("errors", len(res.Errors)),
	)

	// Phase 2 starts only after Phase 1 has fully completed: place names
	// and clustering need the complete, deduplicated record set.
	if p.cfg.Geocoding.Enabled {
		resolver := geocode.NewResolver(locations, geocode.Options{
			Endpoint:    p.cfg.Geocoding.Endpoint,
			MinInterval: time.Duration(p.cfg.Geocoding.MinIntervalSeconds * float64(time.Second)),
			Timeout:     time.Duration(p.cfg.Geocoding.TimeoutSeconds) * time.Second,
			MaxRetries:  p.cfg.Geocoding.MaxRetries,
			Store:       p.locationStore(),
			Logger:      p.log,
		})
		if err := resolver.ResolveAll(ctx, res.Records); err != nil {
			res.Geocode = resolver.Stats()
			p.saveSnapshot(res, locations, registry.Duplicates(), true)
			return res, err
		}
		res.Geocode = resolver.Stats()
	}

	p.saveSnapshot(res, locations, registry.Duplicates(), false)
	p.finish(ctx, res)
	return res, nil
}

// finish clusters the complete record set and records the run.
func (p *Pipeline) finish(ctx context.Context, res *Result) {
	for _, rec := range res.Records {
		if rec.IsDuplicate {
			res.Duplicates++
		}
	}

	res.Groups = cluster.Cluster(res.Records, cluster.Params{
		SameDayHours:   p.cfg.Cluster.SameDayHours,
		EventMaxDays:   p.cfg.Cluster.EventMaxDays,
		GeoRadiusKm:    p.cfg.Cluster.GeoRadiusKm,
		MinEventPhotos: p.cfg.Cluster.MinEventPhotos,
	})
	res.FinishedAt = time.Now()

	if p.store != nil {
		run := &storage.RunRecord{
			SourceIdentity: res.SourceIdentity,
			StartedAt:      res.StartedAt,
			FinishedAt:     res.FinishedAt,
			Files:          int64(len(res.Records)),
			Duplicates:     int64(res.Duplicates),
			Errors:         int64(len(res.Errors)),
			Events:         int64(res.EventCount()),
			FromCache:      res.FromCache,
		}
		if err := p.store.RecordRun(ctx, run); err != nil {
			p.log.Warn("recording run failed", zap.Error(err))
		}
	}
}

// saveSnapshot persists the current record set. Snapshot failures are
// logged, never fatal: the run's in-memory result is already complete.
func (p *Pipeline) saveSnapshot(res *Result, locations *geocode.Cache, duplicates []string, partial bool) {
	doc := &snapshot.Document{
		Meta: snapshot.Meta{
			SourceIdentity: res.SourceIdentity,
			Partial:        partial,
		},
		Records:    res.Records,
		Locations:  locations.Snapshot(),
		Duplicates: duplicates,
	}
	if err := p.snapshots.Save(doc); err != nil {
		p.log.Warn("saving snapshot failed", zap.Error(err))
	}
}

// locationStore adapts the optional SQLite store to the resolver's
// second-level cache interface.
func (p *Pipeline) locationStore() geocode.Store {
	if p.store == nil {
		return nil
	}
	return p.store
}
