package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/theoremus-urban-solutions/railtrips/config"
)

// ErrCorrupt is returned when persisted content cannot be decoded.
var ErrCorrupt = errors.New("store: corrupt content")

// Store is a snapshot-oriented key/value persistence backend.
type Store interface {
	// Load returns every persisted entry. A store that was never written
	// returns an empty map.
	Load(ctx context.Context) (map[string]json.RawMessage, error)
	// Save persists the given entries. Keys absent from entries are left
	// untouched by backends that support partial updates.
	Save(ctx context.Context, entries map[string]json.RawMessage) error
	// Describe names the backend location for logs.
	Describe() string
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]json.RawMessage
	saves   int
}

func NewMemoryStore(seed map[string]json.RawMessage) *MemoryStore {
	m := &MemoryStore{entries: make(map[string]json.RawMessage, len(seed))}
	maps.Copy(m.entries, seed)
	return m
}

func (m *MemoryStore) Load(context.Context) (map[string]json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]json.RawMessage, len(m.entries))
	for k, v := range m.entries {
		if !json.Valid(v) {
			return nil, fmt.Errorf("%w: key %q", ErrCorrupt, k)
		}
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, entries map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.entries, entries)
	m.saves++
	return nil
}

func (m *MemoryStore) Describe() string { return "memory" }

// Saves reports how many times Save was called.
func (m *MemoryStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Open builds the geocoding and route stores selected by the cache config.
// The returned close function releases any shared connection.
func Open(ctx context.Context, cfg config.CacheConfig) (geocoding, routes Store, closeFn func() error, err error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.GeocodingPath), NewFileStore(cfg.RoutesPath), noop, nil
	case "memory":
		return NewMemoryStore(nil), NewMemoryStore(nil), noop, nil
	case "redis":
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return NewRedisStore(client, cfg.GeocodingKey), NewRedisStore(client, cfg.RoutesKey), client.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
