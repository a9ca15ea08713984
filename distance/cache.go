package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	geohash "github.com/TomiHiltunen/geohash-golang"

	"github.com/theoremus-urban-solutions/railtrips/metrics"
	"github.com/theoremus-urban-solutions/railtrips/store"
	"github.com/theoremus-urban-solutions/railtrips/trips"
)

// aliasPrecision gives cells of roughly 5 m, well inside a station.
const aliasPrecision = 9

const aliasPrefix = "geo:"

// AliasKey is the coordinate-based cache key of a directed route.
func AliasKey(from, to trips.GeoPoint) string {
	return aliasPrefix +
		geohash.EncodeWithPrecision(from.Lat, from.Lon, aliasPrecision) + "|" +
		geohash.EncodeWithPrecision(to.Lat, to.Lon, aliasPrecision)
}

// RouteCache holds route breakdowns keyed by RouteKey hash or alias. It is
// append-only and not safe for concurrent use.
type RouteCache struct {
	store   store.Store
	metrics *metrics.Metrics
	logger  *slog.Logger

	entries map[string]trips.RouteDistanceBreakdown
	dirty   map[string]struct{}
	fixed   int
}

// CacheOption configures a RouteCache.
type CacheOption func(*RouteCache)

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *RouteCache) { c.metrics = m }
}

func WithCacheLogger(l *slog.Logger) CacheOption {
	return func(c *RouteCache) { c.logger = l }
}

// OpenRouteCache loads and validates every entry of s. Entries whose total
// was rounded apart from the parts are rebuilt in memory; anything else that
// breaks the breakdown invariant is reported as store.ErrCorrupt.
func OpenRouteCache(ctx context.Context, s store.Store, opts ...CacheOption) (*RouteCache, error) {
	c := &RouteCache{
		store:   s,
		logger:  slog.Default(),
		entries: make(map[string]trips.RouteDistanceBreakdown),
		dirty:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	raw, err := s.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load route cache: %w", err)
	}
	for key, value := range raw {
		var b trips.RouteDistanceBreakdown
		if err := json.Unmarshal(value, &b); err != nil {
			return nil, fmt.Errorf("load route cache %s: %w: entry %q: %v", s.Describe(), store.ErrCorrupt, key, err)
		}
		fixed, err := b.Reconcile()
		if err != nil {
			return nil, fmt.Errorf("load route cache %s: %w: entry %q: %v", s.Describe(), store.ErrCorrupt, key, err)
		}
		if fixed != b {
			c.fixed++
		}
		c.entries[key] = fixed
	}
	c.logger.Debug("route cache loaded", "store", s.Describe(), "entries", len(c.entries), "reconciled", c.fixed)
	return c, nil
}

// Get looks a route up by name key.
func (c *RouteCache) Get(key trips.RouteKey) (trips.RouteDistanceBreakdown, bool) {
	b, ok := c.entries[key.Hash()]
	if ok {
		c.metrics.CacheLookup("routes", "hit")
	} else {
		c.metrics.CacheLookup("routes", "miss")
	}
	return b, ok
}

// GetByPoints looks a route up by the alias of its endpoints.
func (c *RouteCache) GetByPoints(from, to trips.GeoPoint) (trips.RouteDistanceBreakdown, bool) {
	b, ok := c.entries[AliasKey(from, to)]
	if ok {
		c.metrics.CacheLookup("routes", "alias_hit")
	}
	return b, ok
}

// Put stores b under the name key and, when the endpoints are valid, under
// their alias. Existing keys are kept as they are.
func (c *RouteCache) Put(key trips.RouteKey, from, to trips.GeoPoint, b trips.RouteDistanceBreakdown) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("route %s: %w", key, err)
	}
	c.add(key.Hash(), b)
	if from.Valid() && to.Valid() {
		c.add(AliasKey(from, to), b)
	}
	return nil
}

func (c *RouteCache) add(k string, b trips.RouteDistanceBreakdown) {
	if _, exists := c.entries[k]; exists {
		return
	}
	c.entries[k] = b
	c.dirty[k] = struct{}{}
}

func (c *RouteCache) Len() int { return len(c.entries) }

// Pending returns the number of entries not yet flushed.
func (c *RouteCache) Pending() int { return len(c.dirty) }

// Flush persists the entries added since the last flush.
func (c *RouteCache) Flush(ctx context.Context) error {
	if len(c.dirty) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(c.dirty))
	for k := range c.dirty {
		raw, err := json.Marshal(c.entries[k])
		if err != nil {
			return fmt.Errorf("encode route entry %q: %w", k, err)
		}
		out[k] = raw
	}
	if err := c.store.Save(ctx, out); err != nil {
		return fmt.Errorf("flush route cache: %w", err)
	}
	c.logger.Debug("route cache flushed", "store", c.store.Describe(), "entries", len(out))
	clear(c.dirty)
	return nil
}
