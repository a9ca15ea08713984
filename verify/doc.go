// Package verify annotates each traveler's itinerary with advisory
// consistency flags.
//
// parity_flag is EVEN when the traveler has an even number of legs; an odd
// count usually means a missing or duplicated leg. circular_flag is YES when
// the first leg leaves from the city the last leg arrives at, in input order.
// A traveler with a single leg is ODD and not circular.
//
// Verification never drops or changes records. Rows whose origin equals
// their destination, or whose endpoints do not name a city, get a warning.
package verify
