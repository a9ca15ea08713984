package routing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/railtrips/internal/fetch"
	"github.com/theoremus-urban-solutions/railtrips/trips"
)

// DefaultBaseURL is the Signal train profile for Europe.
const DefaultBaseURL = "https://signal.eu.org/osm/eu/route/v1/train"

const serviceName = "router"

// ErrNoRoute is wrapped when the router answers but finds no path.
var ErrNoRoute = errors.New("no route between endpoints")

// Segment is one routed step.
type Segment struct {
	LengthKM float64
	Tags     []string
}

// Router computes the rail path between two points.
type Router interface {
	Route(ctx context.Context, from, to trips.GeoPoint) ([]Segment, error)
}

// OSRM response structures, limited to what classification reads.
type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Distance float64   `json:"distance"` // meters
	Legs     []osrmLeg `json:"legs"`
}

type osrmLeg struct {
	Steps []osrmStep `json:"steps"`
}

type osrmStep struct {
	Distance      float64            `json:"distance"` // meters
	Intersections []osrmIntersection `json:"intersections"`
}

type osrmIntersection struct {
	Classes []string `json:"classes"`
}

// SignalClient calls an OSRM-compatible train router.
type SignalClient struct {
	client  *fetch.Client
	baseURL string
}

func NewSignalClient(baseURL, userAgent string, timeout time.Duration) *SignalClient {
	return &SignalClient{
		client:  fetch.NewClient(serviceName, userAgent, timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Route requests the full route with steps and returns one Segment per step
// of the first route, across all its legs. The tags of a step are the union
// of its intersection classes.
func (s *SignalClient) Route(ctx context.Context, from, to trips.GeoPoint) ([]Segment, error) {
	// OSRM coordinates are lon,lat
	target := fmt.Sprintf("%s/%.6f,%.6f;%.6f,%.6f", s.baseURL, from.Lon, from.Lat, to.Lon, to.Lat)
	q := url.Values{}
	q.Set("overview", "full")
	q.Set("alternatives", "true")
	q.Set("steps", "true")

	var resp osrmResponse
	if err := s.client.GetJSON(ctx, target, q, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "" && resp.Code != "Ok" {
		return nil, trips.NewExternalServiceError(serviceName, trips.FailureRejected, fmt.Errorf("%w: %s %s", ErrNoRoute, resp.Code, resp.Message))
	}
	if len(resp.Routes) == 0 {
		return nil, trips.NewExternalServiceError(serviceName, trips.FailureBadData, ErrNoRoute)
	}
	return segmentsOf(resp.Routes[0])
}

func segmentsOf(route osrmRoute) ([]Segment, error) {
	var segments []Segment
	for _, leg := range route.Legs {
		for _, step := range leg.Steps {
			if step.Distance < 0 || math.IsNaN(step.Distance) {
				return nil, trips.NewExternalServiceError(serviceName, trips.FailureBadData, fmt.Errorf("invalid step distance %v", step.Distance))
			}
			segments = append(segments, Segment{
				LengthKM: step.Distance / 1000,
				Tags:     stepTags(step),
			})
		}
	}
	if len(segments) == 0 {
		return nil, trips.NewExternalServiceError(serviceName, trips.FailureBadData, errors.New("route has no steps"))
	}
	return segments, nil
}

func stepTags(step osrmStep) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, in := range step.Intersections {
		for _, c := range in.Classes {
			if !seen[c] {
				seen[c] = true
				tags = append(tags, c)
			}
		}
	}
	return tags
}
