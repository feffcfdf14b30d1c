// Package scan walks a media collection and runs metadata extraction over it
// with a bounded worker pool. Per-file failures are aggregated, never fatal;
// the only cross-worker shared mutable state is the duplicate registry.
package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/runnerr0/snapsort/internal/extract"
	"github.com/runnerr0/snapsort/internal/media"
)

// Result is the outcome of one scan: the accumulated record set plus the
// per-file error report. Record order is not meaningful; clustering imposes
// its own timestamp order later.
type Result struct {
	Records []*media.Record
	Errors  []media.FileError
}

// Coordinator runs extraction over a file set with a fixed-size worker pool.
type Coordinator struct {
	extractor *extract.Extractor
	registry  *Registry
	workers   int
	skipDirs  map[string]bool
	log       *zap.Logger
}

// AutoWorkers resolves the automatic worker count: min(32, NumCPU+4).
func AutoWorkers() int {
	n := runtime.NumCPU() + 4
	if n > 32 {
		n = 32
	}
	return n
}

// NewCoordinator builds a scan coordinator. workers <= 0 selects the
// automatic count.
func NewCoordinator(extractor *extract.Extractor, registry *Registry, workers int, skipDirs []string, log *zap.Logger) *Coordinator {
	if workers <= 0 {
		workers = AutoWorkers()
	}
	if log == nil {
		log = zap.NewNop()
	}
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[d] = true
	}
	return &Coordinator{
		extractor: extractor,
		registry:  registry,
		workers:   workers,
		skipDirs:  skip,
		log:       log,
	}
}

// Run scans the collection rooted at root. A missing or unreadable root is
// the only fatal condition; individual file failures land in Result.Errors.
// On context cancellation the partial result is returned together with the
// context's error, so already-extracted records stay usable.
func (c *Coordinator) Run(ctx context.Context, root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("source path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", root)
	}

	paths, err := c.collect(root)
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	type outcome struct {
		rec *media.Record
		err *media.FileError
	}

	jobs := make(chan string)
	results := make(chan outcome, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				rec, err := c.extractor.Extract(path)
				if err != nil {
					c.log.Warn("skipping file", zap.String("path", path), zap.Error(err))
					results <- outcome{err: &media.FileError{Path: path, Err: err.Error()}}
					continue
				}
				rec.IsDuplicate = c.registry.Register(rec.ContentHash, rec.Path)
				results <- outcome{rec: rec}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range paths {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	res := &Result{}
	for o := range results {
		if o.err != nil {
			res.Errors = append(res.Errors, *o.err)
			continue
		}
		res.Records = append(res.Records, o.rec)
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// collect walks the tree and returns the absolute paths of all supported
// media files, skipping hidden entries and denylisted directory names.
func (c *Coordinator) collect(root string) ([]string, error) {
	var paths []string

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped, not fatal.
			c.log.Warn("walk error", zap.String("path", path), zap.Error(err))
			return nil
		}

		if info.IsDir() {
			name := info.Name()
			if path != root && (strings.HasPrefix(name, ".") || c.skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(info.Name(), ".") {
			return nil
		}
		if !c.extractor.Supported(path) {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		paths = append(paths, abs)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}
