// Package store persists the key/value documents behind the geocoding and
// route caches.
//
// A Store loads its whole content at once and saves a full snapshot. Values
// are kept as raw JSON so each cache owns its entry format. Three backends
// are provided:
//
//   - MemoryStore for tests and dry runs
//   - FileStore, a single JSON object written atomically (temp file + rename)
//   - RedisStore, a Redis hash written in one MULTI/EXEC transaction
//
// Content that cannot be decoded is reported as ErrCorrupt. Callers treat a
// corrupt store as fatal; it is never silently reset.
package store
