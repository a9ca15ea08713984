package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/theoremus-urban-solutions/railtrips/internal/fetch"
	"github.com/theoremus-urban-solutions/railtrips/trips"
)

// ErrNotFound is returned when the geocoding service has no match for a
// city, or when the cache holds a not-found marker for it.
var ErrNotFound = fmt.Errorf("geocode: not found: %w", trips.ErrUnresolved)

const serviceName = "geocoder"

// Geocoder resolves one city. Implementations return ErrNotFound for a
// definitive miss and a *trips.ExternalServiceError for anything retryable.
type Geocoder interface {
	Lookup(ctx context.Context, city trips.NormalizedCity) (trips.GeoPoint, error)
}

// Nominatim queries an OpenStreetMap Nominatim instance.
type Nominatim struct {
	client       *fetch.Client
	baseURL      string
	countryCodes string
	email        string
}

// NominatimOption configures the Nominatim client.
type NominatimOption func(*Nominatim)

// WithCountryCodes restricts results to a comma-separated ISO 3166-1 list.
func WithCountryCodes(codes string) NominatimOption {
	return func(n *Nominatim) { n.countryCodes = codes }
}

// WithEmail identifies the operator to the service, as its usage policy asks
// for bulk users.
func WithEmail(email string) NominatimOption {
	return func(n *Nominatim) { n.email = email }
}

// WithFetchClient replaces the HTTP client.
func WithFetchClient(c *fetch.Client) NominatimOption {
	return func(n *Nominatim) { n.client = c }
}

func NewNominatim(baseURL, userAgent string, timeout time.Duration, opts ...NominatimOption) *Nominatim {
	n := &Nominatim{
		client:  fetch.NewClient(serviceName, userAgent, timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *Nominatim) Lookup(ctx context.Context, city trips.NormalizedCity) (trips.GeoPoint, error) {
	if city.IsZero() {
		return trips.GeoPoint{}, ErrNotFound
	}
	q := url.Values{}
	q.Set("q", city.String())
	q.Set("format", "jsonv2")
	q.Set("limit", "1")
	if n.countryCodes != "" {
		q.Set("countrycodes", n.countryCodes)
	}
	if n.email != "" {
		q.Set("email", n.email)
	}

	var places []nominatimPlace
	if err := n.client.GetJSON(ctx, n.baseURL+"/search", q, &places); err != nil {
		return trips.GeoPoint{}, err
	}
	if len(places) == 0 {
		return trips.GeoPoint{}, ErrNotFound
	}

	lat, errLat := strconv.ParseFloat(places[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(places[0].Lon, 64)
	if err := errors.Join(errLat, errLon); err != nil {
		return trips.GeoPoint{}, trips.NewExternalServiceError(serviceName, trips.FailureBadData, fmt.Errorf("coordinates for %s: %w", city, err))
	}
	p := trips.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return trips.GeoPoint{}, trips.NewExternalServiceError(serviceName, trips.FailureBadData, fmt.Errorf("coordinates for %s out of range: %s", city, p))
	}
	return p, nil
}
