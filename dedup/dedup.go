package dedup

import (
	"strings"

	"github.com/theoremus-urban-solutions/railtrips/trips"
)

// Duplicate describes a dropped record.
type Duplicate struct {
	Index int
	// KeptReference is the reference whose copy of the leg was kept.
	KeptReference string
	Record        trips.TripRecord
}

// Result is the outcome of a deduplication pass.
type Result struct {
	Kept       []trips.TripRecord
	Duplicates []Duplicate
	Rejected   []*trips.DataQualityError
}

// Stats summarizes the pass. Skipped covers both dropped duplicates and
// rejected records.
func (r Result) Stats() trips.StageStats {
	return trips.StageStats{
		Stage:     "dedup",
		Succeeded: len(r.Kept),
		Skipped:   len(r.Duplicates) + len(r.Rejected),
	}
}

// Run deduplicates records, preserving input order among kept records.
func Run(records []trips.TripRecord) Result {
	var res Result
	firstRef := make(map[trips.TravelerKey]map[trips.RouteKey]string)

	for i, rec := range records {
		if field := missingField(rec); field != "" {
			res.Rejected = append(res.Rejected, &trips.DataQualityError{Index: i, Field: field, Record: rec})
			continue
		}
		key, ok := rec.RouteKey()
		if !ok || key.Loop() {
			res.Kept = append(res.Kept, rec)
			continue
		}

		traveler := rec.Traveler.Canonical()
		legs := firstRef[traveler]
		if legs == nil {
			legs = make(map[trips.RouteKey]string)
			firstRef[traveler] = legs
		}
		ref := canonicalReference(rec.Reference)
		first, seen := legs[key]
		switch {
		case !seen:
			legs[key] = ref
			res.Kept = append(res.Kept, rec)
		case first == ref:
			res.Kept = append(res.Kept, rec)
		default:
			res.Duplicates = append(res.Duplicates, Duplicate{Index: i, KeptReference: first, Record: rec})
		}
	}
	return res
}

func missingField(rec trips.TripRecord) string {
	if rec.Traveler.IsZero() {
		return "traveler"
	}
	if canonicalReference(rec.Reference) == "" {
		return "reference"
	}
	return ""
}

func canonicalReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}
