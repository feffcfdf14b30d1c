// Package geocode converts GPS coordinates into human-readable place names
// via a reverse-geocoding service (Nominatim by default), behind a
// coordinate-quantized cache and a strict request rate limit. Resolution runs
// strictly after the scan phase, on a single goroutine.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/runnerr0/snapsort/internal/media"
)

const userAgent = "snapsort/1.0 (media event organizer)"

// retryBaseDelay is the first backoff step; it doubles per attempt.
const retryBaseDelay = 500 * time.Millisecond

// Store is an optional second-level durable cache consulted between the
// in-memory cache and the network.
type Store interface {
	GetLocation(ctx context.Context, key string) (string, bool, error)
	PutLocation(ctx context.Context, key, name string) error
}

// Stats counts what one run's resolution actually did.
type Stats struct {
	CacheHits  int
	StoreHits  int
	Requests   int
	Unresolved int
}

// Resolver is the sequential, rate-limited reverse geocoder.
type Resolver struct {
	client      *http.Client
	endpoint    string
	cache       *Cache
	store       Store // may be nil
	minInterval time.Duration
	maxRetries  int
	log         *zap.Logger

	lastRequest time.Time       // end of the previous network request
	failed      map[string]bool // keys that exhausted retries this run
	stats       Stats
}

// Options configures a Resolver.
type Options struct {
	Endpoint    string
	MinInterval time.Duration
	Timeout     time.Duration
	MaxRetries  int
	Store       Store
	Logger      *zap.Logger
}

// NewResolver builds a Resolver around a shared location cache.
func NewResolver(cache *Cache, opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Resolver{
		client:      &http.Client{Timeout: opts.Timeout},
		endpoint:    opts.Endpoint,
		cache:       cache,
		store:       opts.Store,
		minInterval: opts.MinInterval,
		maxRetries:  opts.MaxRetries,
		log:         opts.Logger,
		failed:      make(map[string]bool),
	}
}

// Stats returns the counters accumulated so far.
func (r *Resolver) Stats() Stats {
	return r.stats
}

// ResolveAll assigns place names to every GPS-tagged record that lacks one.
// This is Phase 2: it must only run over the complete record set. Geocoding
// failure is never fatal; only context cancellation stops the pass early.
func (r *Resolver) ResolveAll(ctx context.Context, records []*media.Record) error {
	for _, rec := range records {
		if rec.GPS == nil || rec.HasPlace() {
			continue
		}
		name, err := r.Resolve(ctx, *rec.GPS)
		if err != nil {
			return err
		}
		if name != "" {
			rec.PlaceName = name
		}
	}
	return nil
}

// Resolve returns the place name for a coordinate, or "" when it cannot be
// resolved. Cache hits cost nothing; a miss performs one rate-limited
// request with bounded retries. The returned error is non-nil only on
// context cancellation.
func (r *Resolver) Resolve(ctx context.Context, coord media.LatLon) (string, error) {
	key := Quantize(coord)

	if name, ok := r.cache.Get(key); ok {
		r.stats.CacheHits++
		return name, nil
	}
	if r.failed[key] {
		return "", nil
	}
	if r.store != nil {
		name, ok, err := r.store.GetLocation(ctx, key)
		if err != nil {
			r.log.Warn("location store lookup failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			r.stats.StoreHits++
			r.cache.Put(key, name)
			return name, nil
		}
	}

	name, err := r.query(ctx, coord)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.log.Warn("geocoding failed", zap.String("key", key), zap.Error(err))
		r.failed[key] = true
		r.stats.Unresolved++
		return "", nil
	}
	if name == "" {
		r.failed[key] = true
		r.stats.Unresolved++
		return "", nil
	}

	r.cache.Put(key, name)
	if r.store != nil {
		if err := r.store.PutLocation(ctx, key, name); err != nil {
			r.log.Warn("location store write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return name, nil
}

// query performs the network round trips, with exponential backoff on
// transient failures up to the retry ceiling.
func (r *Resolver) query(ctx context.Context, coord media.LatLon) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryBaseDelay << (attempt - 1)
			if err := sleepCtx(ctx, delay); err != nil {
				return "", err
			}
		}
		if err := r.throttle(ctx); err != nil {
			return "", err
		}

		name, retryable, err := r.requestOnce(ctx, coord)
		if err == nil {
			return name, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}
	}
	return "", fmt.Errorf("retries exhausted: %w", lastErr)
}

// throttle enforces the minimum inter-request delay, measured from the end
// of the previous request. Cache hits never reach this point, so they do not
// consume rate budget.
func (r *Resolver) throttle(ctx context.Context) error {
	if !r.lastRequest.IsZero() {
		if wait := r.minInterval - time.Since(r.lastRequest); wait > 0 {
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
		}
	}
	return nil
}

// nominatimResponse mirrors the address block of a Nominatim reverse lookup.
type nominatimResponse struct {
	Address struct {
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
		Municipality  string `json:"municipality"`
		County        string `json:"county"`
		StateDistrict string `json:"state_district"`
		State         string `json:"state"`
	} `json:"address"`
}

// requestOnce performs a single reverse-geocode request. The bool result
// reports whether a failure is worth retrying (timeouts, 5xx, 429).
func (r *Resolver) requestOnce(ctx context.Context, coord media.LatLon) (name string, retryable bool, err error) {
	defer func() { r.lastRequest = time.Now() }()
	r.stats.Requests++

	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", coord.Lat))
	q.Set("lon", fmt.Sprintf("%f", coord.Lon))
	q.Set("format", "json")
	q.Set("addressdetails", "1")
	q.Set("zoom", "10") // city level

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return "", retryable, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var parsed nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("decoding response: %w", err)
	}

	return pickName(parsed), false, nil
}

// pickName walks the administrative names from most to least specific and
// returns the first available, cleaned for folder use.
func pickName(resp nominatimResponse) string {
	candidates := []string{
		resp.Address.City,
		resp.Address.Town,
		resp.Address.Village,
		resp.Address.Municipality,
		resp.Address.County,
		resp.Address.StateDistrict,
		resp.Address.State,
	}
	for _, c := range candidates {
		if c != "" {
			return CleanName(c)
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
