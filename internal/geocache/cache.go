// Package geocache maps normalized address text to resolved coordinates,
// calling the external geocoder on miss. The cache is scoped to one
// process; independent processes keep independent caches.
package geocache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/geoequity/gei/internal/model"
	"github.com/geoequity/gei/internal/resilience"
	"github.com/geoequity/gei/pkg/geocode"
)

// ErrNotFound means the geocoder answered but had no match for the
// address. Not-found results are never cached; a later retry with the
// same address may succeed.
var ErrNotFound = eris.New("geocache: address not found")

var foldCaser = cases.Fold()

// Normalize produces the cache key: trimmed, case-folded, inner
// whitespace collapsed to single spaces. Idempotent by construction.
func Normalize(address string) string {
	return strings.Join(strings.Fields(foldCaser.String(address)), " ")
}

type entry struct {
	coord      model.Coordinate
	display    string
	resolvedAt time.Time
}

// Cache resolves addresses through an in-memory map, an optional SQLite
// tier, and finally the external geocoder. Reads and inserts are safe for
// concurrent use. Concurrent misses on the same key may each call the
// geocoder; the results are identical so the last insert wins harmlessly.
type Cache struct {
	client geocode.Client
	retry  resilience.RetryConfig
	store  *Store

	mu      sync.RWMutex
	entries map[string]entry
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithStore attaches a persistent SQLite tier. Hits promote into memory
// and successful resolutions are written through.
func WithStore(s *Store) CacheOption {
	return func(c *Cache) {
		c.store = s
	}
}

// WithRetry overrides the retry policy for transient geocoder failures.
func WithRetry(cfg resilience.RetryConfig) CacheOption {
	return func(c *Cache) {
		c.retry = cfg
	}
}

// New creates a Cache backed by the given geocoder client.
func New(client geocode.Client, opts ...CacheOption) *Cache {
	c := &Cache{
		client:  client,
		retry:   resilience.DefaultRetryConfig(),
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Len returns the number of in-memory entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Resolve returns the coordinate for an address, consulting the cache
// tiers before the external geocoder. On geocoder success the result is
// cached before returning. Failures are never cached: ErrNotFound for a
// definitive no-match, otherwise the wrapped upstream error.
func (c *Cache) Resolve(ctx context.Context, address string) (model.Coordinate, string, error) {
	key := Normalize(address)
	if key == "" {
		return model.Coordinate{}, "", eris.New("geocache: empty address")
	}

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		zap.L().Debug("geocode cache hit", zap.String("key", key))
		return e.coord, e.display, nil
	}

	if c.store != nil {
		coord, display, found, err := c.store.Get(ctx, key)
		if err != nil {
			zap.L().Warn("geocode cache store read failed", zap.String("key", key), zap.Error(err))
		} else if found {
			c.insert(key, coord, display)
			zap.L().Debug("geocode cache store hit", zap.String("key", key))
			return coord, display, nil
		}
	}

	result, err := resilience.DoVal(ctx, c.withLogging(), func(ctx context.Context) (*geocode.Result, error) {
		return c.client.Geocode(ctx, address)
	})
	if err != nil {
		return model.Coordinate{}, "", eris.Wrap(err, "geocache: geocoder call")
	}
	if !result.Matched {
		return model.Coordinate{}, "", ErrNotFound
	}

	coord := model.Coordinate{Lat: result.Latitude, Lon: result.Longitude}
	if !coord.Valid() {
		return model.Coordinate{}, "", eris.Errorf("geocache: geocoder returned out-of-range coordinate %s", coord)
	}

	c.insert(key, coord, result.DisplayName)
	if c.store != nil {
		if err := c.store.Put(ctx, key, coord, result.DisplayName); err != nil {
			zap.L().Warn("geocode cache store write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return coord, result.DisplayName, nil
}

func (c *Cache) insert(key string, coord model.Coordinate, display string) {
	c.mu.Lock()
	c.entries[key] = entry{coord: coord, display: display, resolvedAt: time.Now()}
	c.mu.Unlock()
}

func (c *Cache) withLogging() resilience.RetryConfig {
	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("geocode", "resolve")
	}
	return cfg
}
