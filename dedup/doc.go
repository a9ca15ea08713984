// Package dedup removes trip legs booked under more than one reference.
//
// The same physical journey frequently shows up twice in a traveler's
// receipts: once on the original booking and again on an exchange or a
// confirmation with a new reference. Within one traveler, a leg is identified
// by its normalized, directed origin/destination pair. The first reference a
// leg is seen under (input order) keeps it; the same leg under any other
// reference is dropped. Legs that share a reference are never dropped, so an
// outbound and a return on one booking both survive.
//
// Records without a traveler or reference are rejected with a
// *trips.DataQualityError. Records whose endpoints do not name a city cannot
// be compared and pass through untouched, as do records whose origin equals
// their destination; verification flags both.
package dedup
