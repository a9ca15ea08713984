// Package trips defines the row-oriented records that flow through the
// consolidation pipeline.
//
// A TripRecord is one leg of travel for one traveler, exactly as handed over
// by the raw trip supplier. Records are never mutated: each pipeline stage
// wraps them in an AnnotatedTrip and appends derived fields through the
// copy-on-write With* methods.
//
// # Normalization
//
// City names arrive with inconsistent casing, accents and punctuation.
// NormalizeCity folds them to a canonical NormalizedCity; two legs with equal
// normalized endpoints describe the same physical route and share one RouteKey:
//
//	trips.NormalizeCity("strasbourg-")   // "STRASBOURG"
//	trips.NormalizeCity("Saint-Étienne") // "SAINT ETIENNE"
//	trips.NormalizeCity("not found")     // "" (no city)
//
// RouteKey.Hash is the content address used by the route cache.
//
// # Errors
//
// The package also carries the error taxonomy shared by every stage:
// DataQualityError (record-scoped), ErrUnresolved (route-scoped),
// ExternalServiceError (route-scoped, not cached, retried on the next run).
package trips
