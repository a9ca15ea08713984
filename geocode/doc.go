// Package geocode turns normalized city names into coordinates.
//
// The Cache is the only component that talks to the geocoding service. It
// is backed by a store.Store and is append-only: a lookup result, including
// a definitive "not found", is recorded once and never replaced by later
// lookups. Pin is the operator path for curating or correcting an entry.
//
// Network calls go through a pacer so that consecutive requests are at least
// the configured interval apart; cache hits never wait.
//
// Persisted entry format, keyed by normalized city:
//
//	{"lat": 48.8566, "lon": 2.3522}
//	{"not_found": true}
//
// A JSON null is read as a not-found marker as well.
package geocode
