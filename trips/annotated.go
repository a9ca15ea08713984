package trips

import "slices"

// Flag is an advisory verification value.
type Flag string

const (
	ParityEven  Flag = "EVEN"
	ParityOdd   Flag = "ODD"
	CircularYes Flag = "YES"
	CircularNo  Flag = "NO"
)

// Verification holds the per-traveler itinerary checks, repeated on every
// row of the traveler.
type Verification struct {
	Parity   Flag
	Circular Flag
}

// AnnotatedTrip is a TripRecord plus the fields derived by pipeline stages.
// Nil derived fields have not been computed or could not be.
type AnnotatedTrip struct {
	Record       TripRecord
	Verification *Verification
	Distance     *RouteDistanceBreakdown
	CrowKM       *float64
	Warnings     []Warning
}

// Wrap lifts raw records into annotated rows with no derived fields.
func Wrap(records []TripRecord) []AnnotatedTrip {
	out := make([]AnnotatedTrip, len(records))
	for i, r := range records {
		out[i] = AnnotatedTrip{Record: r}
	}
	return out
}

func (a AnnotatedTrip) WithVerification(v Verification) AnnotatedTrip {
	a.Verification = &v
	return a
}

func (a AnnotatedTrip) WithDistance(b RouteDistanceBreakdown) AnnotatedTrip {
	a.Distance = &b
	return a
}

func (a AnnotatedTrip) WithCrowKM(km float64) AnnotatedTrip {
	a.CrowKM = &km
	return a
}

// WithWarning appends w unless already present. The receiver's slice is never
// shared with the result.
func (a AnnotatedTrip) WithWarning(w Warning) AnnotatedTrip {
	if a.HasWarning(w) {
		return a
	}
	warnings := make([]Warning, len(a.Warnings), len(a.Warnings)+1)
	copy(warnings, a.Warnings)
	a.Warnings = append(warnings, w)
	return a
}

func (a AnnotatedTrip) HasWarning(w Warning) bool {
	return slices.Contains(a.Warnings, w)
}
