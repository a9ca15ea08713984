package trips

import (
	"strings"
)

// TravelerKey identifies a traveler within one event. It is not unique across
// homonyms.
type TravelerKey struct {
	LastName  string
	FirstName string
}

// IsZero reports whether the key carries no usable identity.
func (k TravelerKey) IsZero() bool {
	return normalize(k.LastName) == "" && normalize(k.FirstName) == ""
}

// Canonical returns the comparison form of the key, so that
// "Dupont Émile" and "DUPONT Emile" group together.
func (k TravelerKey) Canonical() TravelerKey {
	return TravelerKey{LastName: normalize(k.LastName), FirstName: normalize(k.FirstName)}
}

func (k TravelerKey) String() string {
	return strings.TrimSpace(k.LastName + " " + k.FirstName)
}

// TrainClass is the display-only service label extracted upstream.
type TrainClass string

const (
	TrainClassHighSpeed   TrainClass = "high_speed"
	TrainClassIntercity   TrainClass = "intercity"
	TrainClassRegional    TrainClass = "regional"
	TrainClassUnspecified TrainClass = "unspecified"
)

var (
	highSpeedLabels = map[string]bool{
		"TGV": true, "INOUI": true, "OUIGO": true, "LYRIA": true, "EUROSTAR": true,
		"THALYS": true, "ICE": true, "AVE": true, "FRECCIAROSSA": true,
	}
	regionalLabels = map[string]bool{"TER": true, "TRANSILIEN": true, "RER": true, "REGIONAL": true}
)

// ParseTrainClass maps upstream labels (TGV INOUI, OUIGO, TER, Intercités...)
// onto a TrainClass. Unknown labels map to TrainClassUnspecified.
func ParseTrainClass(label string) TrainClass {
	l := normalize(label)
	if l == "" {
		return TrainClassUnspecified
	}
	if l == "HIGH SPEED" {
		return TrainClassHighSpeed
	}
	words := strings.Fields(l)
	for _, w := range words {
		if highSpeedLabels[w] {
			return TrainClassHighSpeed
		}
	}
	for _, w := range words {
		if strings.HasPrefix(w, "INTERCIT") {
			return TrainClassIntercity
		}
		if regionalLabels[w] {
			return TrainClassRegional
		}
	}
	return TrainClassUnspecified
}

// TripRecord is one leg of travel for one traveler.
type TripRecord struct {
	Traveler    TravelerKey
	Reference   string
	Origin      string
	Destination string
	TrainClass  TrainClass
}

// RouteKey returns the normalized directed route of the leg. ok is false when
// either endpoint does not normalize to a city.
func (r TripRecord) RouteKey() (RouteKey, bool) {
	key := NewRouteKey(r.Origin, r.Destination)
	return key, key.Valid()
}
