package geocode

import (
	"fmt"
	"sync"

	"github.com/runnerr0/snapsort/internal/media"
)

// Quantize rounds a coordinate to the cache key precision (three decimal
// places, roughly 100 m). Any two coordinates that round to the same key
// share one cached place name and one geocoding request.
func Quantize(c media.LatLon) string {
	return fmt.Sprintf("%.3f,%.3f", c.Lat, c.Lon)
}

// Cache is the in-memory location cache: quantized coordinate key to place
// name. It is shared across the whole run, rehydrated from the snapshot, and
// persisted back. The lock keeps it safe even though only the single Phase 2
// resolver writes place names.
type Cache struct {
	mu sync.Mutex
	m  map[string]string
}

// NewCache returns an empty location cache.
func NewCache() *Cache {
	return &Cache{m: make(map[string]string)}
}

// Get looks up a quantized key.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.m[key]
	return name, ok
}

// Put stores a resolved place name.
func (c *Cache) Put(key, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = name
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.m)
}

// Snapshot copies the cache contents for persistence.
func (c *Cache) Snapshot() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}

// Load merges persisted entries into the cache. Existing keys win, so a
// fresher in-memory resolution is never clobbered by stale persisted data.
func (c *Cache) Load(entries map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range entries {
		if _, ok := c.m[k]; !ok {
			c.m[k] = v
		}
	}
}
