// Package distance computes rail distance breakdowns for trips.
//
// The RouteCache is content-addressed: a route is stored under the MD5 of
// its normalized "ORIGIN|DESTINATION" key, and additionally under an alias
// built from the geohashes of both resolved endpoints. The alias lets two
// spellings that geocode to the same place share one routed result.
//
// The Engine classifies each distinct RouteKey of a run at most once:
//
//  1. route cache hit: stored breakdown, no network
//  2. resolve both endpoints through the geocoding cache
//  3. alias hit: stored breakdown, recorded under the name key too
//  4. router call through the pacer, breakdown stored
//
// Failures never stop the run. Unresolved endpoints, routing failures and
// skipped routes leave the distance empty and attach a warning; none of them
// is cached, so the next run retries.
package distance
