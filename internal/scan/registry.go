package scan

import (
	"sort"
	"sync"
)

// Registry is the thread-safe duplicate registry shared by all scan workers.
// The first registration of a content hash claims the canonical slot; every
// later registration of the same hash is flagged as a duplicate. Which
// concurrent worker wins the slot is unspecified, but there is exactly one
// winner per hash.
type Registry struct {
	mu        sync.Mutex
	firstSeen map[string]string // content hash -> canonical path
	dups      map[string]bool   // hashes seen more than once
}

// NewRegistry returns an empty duplicate registry.
func NewRegistry() *Registry {
	return &Registry{
		firstSeen: make(map[string]string),
		dups:      make(map[string]bool),
	}
}

// Register records a (hash, path) observation. It returns false for the
// first path seen with a given hash and true for every subsequent one.
// The critical section covers only the lookup and conditional insert.
func (r *Registry) Register(hash, path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.firstSeen[hash]; ok {
		r.dups[hash] = true
		return true
	}
	r.firstSeen[hash] = path
	return false
}

// Canonical returns the first-seen path for a hash, if any.
func (r *Registry) Canonical(hash string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.firstSeen[hash]
	return path, ok
}

// Duplicates returns the sorted set of hashes that occurred more than once.
func (r *Registry) Duplicates() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.dups))
	for h := range r.dups {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
