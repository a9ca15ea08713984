package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/theoremus-urban-solutions/railtrips/internal/pacer"
	"github.com/theoremus-urban-solutions/railtrips/metrics"
	"github.com/theoremus-urban-solutions/railtrips/store"
	"github.com/theoremus-urban-solutions/railtrips/trips"
)

type entry struct {
	Lat      *float64 `json:"lat,omitempty"`
	Lon      *float64 `json:"lon,omitempty"`
	NotFound bool     `json:"not_found,omitempty"`
}

func (e entry) point() trips.GeoPoint { return trips.GeoPoint{Lat: *e.Lat, Lon: *e.Lon} }

func foundEntry(p trips.GeoPoint) entry {
	lat, lon := p.Lat, p.Lon
	return entry{Lat: &lat, Lon: &lon}
}

// Stats counts cache activity for one run.
type Stats struct {
	Hits     int
	Misses   int
	NotFound int
	Failures int
}

// Cache is the persistent geocoding cache. It is not safe for concurrent
// use.
type Cache struct {
	store    store.Store
	geocoder Geocoder
	pacer    *pacer.Pacer
	metrics  *metrics.Metrics
	logger   *slog.Logger

	entries map[trips.NormalizedCity]entry
	dirty   map[trips.NormalizedCity]struct{}

	// failed holds service errors for this run only; it is never flushed.
	failed map[trips.NormalizedCity]error
	stats  Stats
}

// Option configures a Cache.
type Option func(*Cache)

// WithPacer sets the pacer that spaces geocoding calls.
func WithPacer(p *pacer.Pacer) Option {
	return func(c *Cache) { c.pacer = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// Open loads every entry from s. Content that does not decode into valid
// entries fails with store.ErrCorrupt. geocoder may be nil for offline use,
// in which case misses resolve to trips.ErrUnresolved without a network call.
func Open(ctx context.Context, s store.Store, geocoder Geocoder, opts ...Option) (*Cache, error) {
	c := &Cache{
		store:    s,
		geocoder: geocoder,
		logger:   slog.Default(),
		entries:  make(map[trips.NormalizedCity]entry),
		dirty:    make(map[trips.NormalizedCity]struct{}),
		failed:   make(map[trips.NormalizedCity]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pacer == nil {
		c.pacer = pacer.New(time.Second, pacer.SystemClock())
	}

	raw, err := s.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load geocoding cache: %w", err)
	}
	for key, value := range raw {
		e, err := decodeEntry(value)
		if err != nil {
			return nil, fmt.Errorf("load geocoding cache %s: %w: entry %q: %v", s.Describe(), store.ErrCorrupt, key, err)
		}
		c.entries[trips.NormalizedCity(key)] = e
	}
	c.logger.Debug("geocoding cache loaded", "store", s.Describe(), "entries", len(c.entries))
	return c, nil
}

func decodeEntry(value json.RawMessage) (entry, error) {
	var e *entry
	if err := json.Unmarshal(value, &e); err != nil {
		return entry{}, err
	}
	if e == nil {
		return entry{NotFound: true}, nil
	}
	if e.NotFound {
		return entry{NotFound: true}, nil
	}
	if e.Lat == nil || e.Lon == nil {
		return entry{}, errors.New("missing lat/lon")
	}
	if !e.point().Valid() {
		return entry{}, fmt.Errorf("coordinates out of range: %s", e.point())
	}
	return *e, nil
}

// Resolve returns the coordinates of city, calling the geocoding service on
// a cache miss. A definitive miss is remembered and reported as ErrNotFound.
// Service failures are returned as *trips.ExternalServiceError and replayed
// for the same city until the Cache is discarded; they are never persisted.
func (c *Cache) Resolve(ctx context.Context, city trips.NormalizedCity) (trips.GeoPoint, error) {
	if city.IsZero() {
		return trips.GeoPoint{}, trips.ErrUnresolved
	}
	if e, ok := c.entries[city]; ok {
		c.stats.Hits++
		c.metrics.CacheLookup("geocoding", "hit")
		if e.NotFound {
			return trips.GeoPoint{}, ErrNotFound
		}
		return e.point(), nil
	}
	if err, ok := c.failed[city]; ok {
		c.metrics.CacheLookup("geocoding", "failed")
		return trips.GeoPoint{}, err
	}
	c.stats.Misses++
	c.metrics.CacheLookup("geocoding", "miss")
	if c.geocoder == nil {
		return trips.GeoPoint{}, trips.ErrUnresolved
	}

	var p trips.GeoPoint
	err := c.pacer.Do(ctx, func(ctx context.Context) error {
		var err error
		p, err = c.geocoder.Lookup(ctx, city)
		return err
	})
	switch {
	case err == nil:
		c.metrics.ExternalCall(serviceName, "ok")
		c.record(city, foundEntry(p))
		c.logger.Debug("city geocoded", "city", city, "lat", p.Lat, "lon", p.Lon)
		return p, nil
	case errors.Is(err, ErrNotFound):
		c.stats.NotFound++
		c.metrics.ExternalCall(serviceName, "not_found")
		c.record(city, entry{NotFound: true})
		c.logger.Info("city not found by geocoder", "city", city)
		return trips.GeoPoint{}, ErrNotFound
	case ctx.Err() != nil:
		return trips.GeoPoint{}, err
	default:
		c.failed[city] = err
		c.stats.Failures++
		c.metrics.ExternalCall(serviceName, string(trips.CategoryOf(err)))
		c.logger.Warn("geocoding failed", "city", city, "error", err)
		return trips.GeoPoint{}, err
	}
}

func (c *Cache) record(city trips.NormalizedCity, e entry) {
	if _, exists := c.entries[city]; exists {
		return
	}
	c.entries[city] = e
	c.dirty[city] = struct{}{}
}

// Pin stores a curated point for city, replacing any existing entry.
func (c *Cache) Pin(city trips.NormalizedCity, p trips.GeoPoint) error {
	if city.IsZero() {
		return fmt.Errorf("pin: empty city")
	}
	if !p.Valid() {
		return fmt.Errorf("pin %s: coordinates out of range: %s", city, p)
	}
	prev, had := c.entries[city]
	c.entries[city] = foundEntry(p)
	c.dirty[city] = struct{}{}
	delete(c.failed, city)
	if had && !prev.NotFound {
		c.logger.Info("geocoding entry replaced", "city", city, "from", prev.point().String(), "to", p.String())
	} else {
		c.logger.Info("geocoding entry pinned", "city", city, "point", p.String())
	}
	return nil
}

// Peek reads the cache without touching the network. found is false for a
// not-found marker; ok is false when the city has never been looked up.
func (c *Cache) Peek(city trips.NormalizedCity) (p trips.GeoPoint, found, ok bool) {
	e, ok := c.entries[city]
	if !ok {
		return trips.GeoPoint{}, false, false
	}
	if e.NotFound {
		return trips.GeoPoint{}, false, true
	}
	return e.point(), true, true
}

// Len returns the number of cached cities.
func (c *Cache) Len() int { return len(c.entries) }

// Pending returns the number of entries not yet flushed.
func (c *Cache) Pending() int { return len(c.dirty) }

func (c *Cache) Stats() Stats { return c.stats }

// Calls returns the number of geocoding requests issued.
func (c *Cache) Calls() int { return c.pacer.Calls() }

// Flush persists entries added or pinned since the last flush.
func (c *Cache) Flush(ctx context.Context) error {
	if len(c.dirty) == 0 {
		return nil
	}
	out := make(map[string]json.RawMessage, len(c.dirty))
	for city := range c.dirty {
		raw, err := json.Marshal(c.entries[city])
		if err != nil {
			return fmt.Errorf("encode geocoding entry %q: %w", city, err)
		}
		out[string(city)] = raw
	}
	if err := c.store.Save(ctx, out); err != nil {
		return fmt.Errorf("flush geocoding cache: %w", err)
	}
	c.logger.Debug("geocoding cache flushed", "store", c.store.Describe(), "entries", len(out))
	clear(c.dirty)
	return nil
}
