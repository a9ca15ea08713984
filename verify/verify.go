package verify

import (
	"github.com/theoremus-urban-solutions/railtrips/trips"
)

type itinerary struct {
	legs        int
	origin      trips.NormalizedCity
	destination trips.NormalizedCity
}

// Annotate computes the flags per traveler and repeats them on every row of
// that traveler.
func Annotate(rows []trips.AnnotatedTrip) ([]trips.AnnotatedTrip, trips.StageStats) {
	byTraveler := make(map[trips.TravelerKey]*itinerary)
	for _, row := range rows {
		k := row.Record.Traveler.Canonical()
		it := byTraveler[k]
		if it == nil {
			it = &itinerary{origin: trips.NormalizeCity(row.Record.Origin)}
			byTraveler[k] = it
		}
		it.legs++
		it.destination = trips.NormalizeCity(row.Record.Destination)
	}

	stats := trips.StageStats{Stage: "verify"}
	out := make([]trips.AnnotatedTrip, len(rows))
	for i, row := range rows {
		it := byTraveler[row.Record.Traveler.Canonical()]
		row = row.WithVerification(flags(it))

		before := len(row.Warnings)
		key, ok := row.Record.RouteKey()
		switch {
		case !ok:
			row = row.WithWarning(trips.WarningMissingCity)
		case key.Loop():
			row = row.WithWarning(trips.WarningOriginEqualsDestination)
		}
		if len(row.Warnings) > before {
			stats.Warned++
		}
		stats.Succeeded++
		out[i] = row
	}
	return out, stats
}

func flags(it *itinerary) trips.Verification {
	v := trips.Verification{Parity: trips.ParityOdd, Circular: trips.CircularNo}
	if it.legs%2 == 0 {
		v.Parity = trips.ParityEven
	}
	if it.legs > 1 && !it.origin.IsZero() && it.origin == it.destination {
		v.Circular = trips.CircularYes
	}
	return v
}
