package trips

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/theoremus-urban-solutions/railtrips/utils"
)

const (
	// BreakdownToleranceKM bounds the difference between a breakdown's total
	// and the sum of its parts.
	BreakdownToleranceKM = 0.01

	// legacySlackKM covers entries whose total and parts were rounded
	// independently.
	legacySlackKM = 0.02
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within WGS84 bounds.
func (p GeoPoint) Valid() bool { return utils.ValidCoordinate(p.Lat, p.Lon) }

// DistanceKM returns the great-circle distance to q.
func (p GeoPoint) DistanceKM(q GeoPoint) float64 {
	return utils.GreatCircleKM(p.Lat, p.Lon, q.Lat, q.Lon)
}

func (p GeoPoint) String() string { return fmt.Sprintf("(%.5f, %.5f)", p.Lat, p.Lon) }

// RouteKey is the canonical identifier of a directed route.
type RouteKey struct {
	Origin      NormalizedCity
	Destination NormalizedCity
}

// NewRouteKey normalizes both endpoints.
func NewRouteKey(origin, destination string) RouteKey {
	return RouteKey{Origin: NormalizeCity(origin), Destination: NormalizeCity(destination)}
}

// Valid reports whether both endpoints name a city.
func (k RouteKey) Valid() bool { return !k.Origin.IsZero() && !k.Destination.IsZero() }

// Loop reports whether origin and destination are the same city.
func (k RouteKey) Loop() bool { return k.Valid() && k.Origin == k.Destination }

func (k RouteKey) String() string { return string(k.Origin) + "|" + string(k.Destination) }

// Hash is the content address of the route in the route cache: the hex MD5 of
// "ORIGIN|DESTINATION".
func (k RouteKey) Hash() string {
	sum := md5.Sum([]byte(k.String()))
	return hex.EncodeToString(sum[:])
}

// RouteDistanceBreakdown splits a routed distance by infrastructure class.
// Percentages are derived, never stored.
type RouteDistanceBreakdown struct {
	TotalKM        float64 `json:"distance_km"`
	HighSpeedKM    float64 `json:"lgv_km"`
	ConventionalKM float64 `json:"ter_km"`
	UnknownKM      float64 `json:"unknown_km"`
}

// NewBreakdown rounds each class to 10 m and derives the total from the
// rounded parts, so the breakdown is consistent by construction.
func NewBreakdown(highSpeedKM, conventionalKM, unknownKM float64) RouteDistanceBreakdown {
	hs := utils.RoundTo(highSpeedKM, 2)
	cv := utils.RoundTo(conventionalKM, 2)
	uk := utils.RoundTo(unknownKM, 2)
	return RouteDistanceBreakdown{
		TotalKM:        utils.RoundTo(hs+cv+uk, 2),
		HighSpeedKM:    hs,
		ConventionalKM: cv,
		UnknownKM:      uk,
	}
}

func (b RouteDistanceBreakdown) HighSpeedPct() float64 {
	return utils.Percent(b.HighSpeedKM, b.TotalKM, 1)
}

func (b RouteDistanceBreakdown) ConventionalPct() float64 {
	return utils.Percent(b.ConventionalKM, b.TotalKM, 1)
}

func (b RouteDistanceBreakdown) UnknownPct() float64 {
	return utils.Percent(b.UnknownKM, b.TotalKM, 1)
}

// Consistent reports whether the parts add up to the total within
// BreakdownToleranceKM.
func (b RouteDistanceBreakdown) Consistent() bool {
	sum := b.HighSpeedKM + b.ConventionalKM + b.UnknownKM
	return math.Abs(sum-b.TotalKM) <= BreakdownToleranceKM
}

// Validate rejects negative, non-finite or inconsistent figures.
func (b RouteDistanceBreakdown) Validate() error {
	if err := b.checkFigures(); err != nil {
		return err
	}
	if !b.Consistent() {
		return fmt.Errorf("parts sum to %.2f km, total is %.2f km",
			b.HighSpeedKM+b.ConventionalKM+b.UnknownKM, b.TotalKM)
	}
	return nil
}

// Reconcile validates a persisted breakdown. Entries whose total drifted from
// the parts by independent rounding are rebuilt from their parts; anything
// further off is rejected.
func (b RouteDistanceBreakdown) Reconcile() (RouteDistanceBreakdown, error) {
	if err := b.checkFigures(); err != nil {
		return b, err
	}
	if b.Consistent() {
		return b, nil
	}
	sum := b.HighSpeedKM + b.ConventionalKM + b.UnknownKM
	if math.Abs(sum-b.TotalKM) > legacySlackKM {
		return b, fmt.Errorf("parts sum to %.2f km, total is %.2f km", sum, b.TotalKM)
	}
	return NewBreakdown(b.HighSpeedKM, b.ConventionalKM, b.UnknownKM), nil
}

func (b RouteDistanceBreakdown) checkFigures() error {
	figures := [...]struct {
		name string
		v    float64
	}{
		{"distance_km", b.TotalKM},
		{"lgv_km", b.HighSpeedKM},
		{"ter_km", b.ConventionalKM},
		{"unknown_km", b.UnknownKM},
	}
	for _, f := range figures {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("invalid %s: %v", f.name, f.v)
		}
	}
	return nil
}
