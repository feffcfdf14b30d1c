// Package snapshot persists and reloads one collection's pipeline output:
// the full record set, the location cache, and the duplicate set, keyed by
// source-collection identity. A valid snapshot makes a repeat run skip both
// pipeline phases entirely.
//
// Validation is identity-match only. The snapshot can go stale when files
// are added, removed, or modified after caching; that is a documented
// limitation, addressed by an explicit refresh, not by content checks.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/runnerr0/snapsort/internal/media"
)

// ErrMiss is returned by Load for any condition that falls back to a full
// run: no snapshot, unreadable or corrupt document, identity mismatch.
var ErrMiss = errors.New("snapshot miss")

// Meta is the snapshot's descriptive block.
type Meta struct {
	SourceIdentity string    `json:"source_identity"`
	CreatedAt      time.Time `json:"created_at"`
	RecordCount    int       `json:"record_count"`
	// Partial marks a snapshot taken from a cancelled scan; it is still a
	// valid starting point but never a substitute for a complete run.
	Partial bool `json:"partial,omitempty"`
}

// Document is the persisted form. Every record field round-trips, including
// the optional ones; the location cache and duplicate set use stable string
// keys (quantized coordinates, hash hex).
type Document struct {
	Meta       Meta              `json:"meta"`
	Records    []*media.Record   `json:"records"`
	Locations  map[string]string `json:"locations"`
	Duplicates []string          `json:"duplicates"`
}

// Store reads and writes snapshot documents under one directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created lazily
// on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Identity derives the cache identity of a source collection: the absolute,
// symlink-resolved path.
func Identity(sourcePath string) (string, error) {
	abs, err := filepath.Abs(sourcePath)
	if err != nil {
		return "", fmt.Errorf("resolving source path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

// fileFor maps an identity to its snapshot file name.
func (s *Store) fileFor(identity string) string {
	sum := sha256.Sum256([]byte(identity))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:8])+".json")
}

// Save writes the document for its source identity. The write goes to a
// temporary file first and is atomically promoted, so a crash never leaves a
// torn snapshot behind.
func (s *Store) Save(doc *Document) error {
	if doc.Meta.SourceIdentity == "" {
		return fmt.Errorf("snapshot: empty source identity")
	}
	doc.Meta.RecordCount = len(doc.Records)
	if doc.Meta.CreatedAt.IsZero() {
		doc.Meta.CreatedAt = time.Now().UTC()
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	final := s.fileFor(doc.Meta.SourceIdentity)
	tmp, err := os.CreateTemp(s.dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("promoting snapshot: %w", err)
	}
	return nil
}

// Load returns the document for a source identity. Every failure mode that
// should trigger a full pipeline run maps to ErrMiss.
func (s *Store) Load(identity string) (*Document, error) {
	data, err := os.ReadFile(s.fileFor(identity))
	if err != nil {
		return nil, ErrMiss
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, ErrMiss
	}
	if doc.Meta.SourceIdentity != identity {
		return nil, ErrMiss
	}
	if doc.Locations == nil {
		doc.Locations = make(map[string]string)
	}
	return &doc, nil
}

// Delete removes the snapshot for a source identity, if present.
func (s *Store) Delete(identity string) error {
	err := os.Remove(s.fileFor(identity))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns the meta blocks of all snapshots in the store.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var metas []Meta
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		metas = append(metas, doc.Meta)
	}
	return metas, nil
}

// PurgeAll removes every snapshot file in the store.
func (s *Store) PurgeAll() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
