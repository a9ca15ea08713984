package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/railtrips/internal/pacer"
	"github.com/theoremus-urban-solutions/railtrips/store"
	"github.com/theoremus-urban-solutions/railtrips/trips"
)

type fakeGeocoder struct {
	points map[trips.NormalizedCity]trips.GeoPoint
	fail   map[trips.NormalizedCity]error
	calls  []trips.NormalizedCity
}

func (f *fakeGeocoder) Lookup(_ context.Context, city trips.NormalizedCity) (trips.GeoPoint, error) {
	f.calls = append(f.calls, city)
	if err := f.fail[city]; err != nil {
		return trips.GeoPoint{}, err
	}
	if p, ok := f.points[city]; ok {
		return p, nil
	}
	return trips.GeoPoint{}, ErrNotFound
}

var (
	paris = trips.GeoPoint{Lat: 48.8566, Lon: 2.3522}
	lyon  = trips.GeoPoint{Lat: 45.764, Lon: 4.8357}
)

func newTestCache(t *testing.T, s store.Store, g Geocoder) (*Cache, *pacer.ManualClock) {
	t.Helper()
	clock := pacer.NewManualClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	c, err := Open(context.Background(), s, g, WithPacer(pacer.New(time.Second, clock)))
	require.NoError(t, err)
	return c, clock
}

func TestResolve_MissThenHit(t *testing.T) {
	ctx := context.Background()
	g := &fakeGeocoder{points: map[trips.NormalizedCity]trips.GeoPoint{"PARIS": paris}}
	c, clock := newTestCache(t, store.NewMemoryStore(nil), g)

	p, err := c.Resolve(ctx, "PARIS")
	require.NoError(t, err)
	assert.Equal(t, paris, p)

	p, err = c.Resolve(ctx, "PARIS")
	require.NoError(t, err)
	assert.Equal(t, paris, p)

	assert.Len(t, g.calls, 1)
	assert.Empty(t, clock.Slept(), "hits never wait")
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())
}

func TestResolve_NotFoundIsRemembered(t *testing.T) {
	ctx := context.Background()
	g := &fakeGeocoder{}
	s := store.NewMemoryStore(nil)
	c, _ := newTestCache(t, s, g)

	_, err := c.Resolve(ctx, "ATLANTIS")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, trips.ErrUnresolved)
	_, err = c.Resolve(ctx, "ATLANTIS")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, g.calls, 1)

	require.NoError(t, c.Flush(ctx))
	raw, err := s.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"not_found":true}`, string(raw["ATLANTIS"]))
}

func TestResolve_ServiceErrorNotCached(t *testing.T) {
	ctx := context.Background()
	outage := trips.NewExternalServiceError("geocoder", trips.FailureProviderOutage, errors.New("502"))
	g := &fakeGeocoder{fail: map[trips.NormalizedCity]error{"LYON": outage}}
	s := store.NewMemoryStore(nil)
	c, _ := newTestCache(t, s, g)

	_, err := c.Resolve(ctx, "LYON")
	var se *trips.ExternalServiceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Pending())
	require.NoError(t, c.Flush(ctx))

	// next run
	delete(g.fail, "LYON")
	g.points = map[trips.NormalizedCity]trips.GeoPoint{"LYON": lyon}
	next, _ := newTestCache(t, s, g)
	p, err := next.Resolve(ctx, "LYON")
	require.NoError(t, err)
	assert.Equal(t, lyon, p)
	assert.Len(t, g.calls, 2)
}

func TestResolve_ServiceErrorOncePerRun(t *testing.T) {
	ctx := context.Background()
	outage := trips.NewExternalServiceError("geocoder", trips.FailureProviderOutage, errors.New("503"))
	g := &fakeGeocoder{fail: map[trips.NormalizedCity]error{"ATLANTIS": outage}}
	c, clock := newTestCache(t, store.NewMemoryStore(nil), g)

	for range 4 {
		_, err := c.Resolve(ctx, "ATLANTIS")
		var se *trips.ExternalServiceError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, trips.FailureProviderOutage, se.Category)
	}

	assert.Equal(t, []trips.NormalizedCity{"ATLANTIS"}, g.calls)
	assert.Equal(t, 1, c.Calls())
	assert.Empty(t, clock.Slept())
	assert.Equal(t, 1, c.Stats().Failures)
	assert.Equal(t, 0, c.Pending())
}

func TestPin_ClearsRememberedFailure(t *testing.T) {
	ctx := context.Background()
	outage := trips.NewExternalServiceError("geocoder", trips.FailureTimeout, errors.New("deadline"))
	g := &fakeGeocoder{fail: map[trips.NormalizedCity]error{"LYON": outage}}
	c, _ := newTestCache(t, store.NewMemoryStore(nil), g)

	_, err := c.Resolve(ctx, "LYON")
	require.Error(t, err)
	require.NoError(t, c.Pin("LYON", lyon))

	p, err := c.Resolve(ctx, "LYON")
	require.NoError(t, err)
	assert.Equal(t, lyon, p)
	assert.Len(t, g.calls, 1)
}

func TestResolve_PacesNetworkCalls(t *testing.T) {
	ctx := context.Background()
	g := &fakeGeocoder{points: map[trips.NormalizedCity]trips.GeoPoint{"PARIS": paris, "LYON": lyon}}
	c, clock := newTestCache(t, store.NewMemoryStore(nil), g)

	_, _ = c.Resolve(ctx, "PARIS")
	clock.Advance(300 * time.Millisecond)
	_, _ = c.Resolve(ctx, "PARIS")
	_, _ = c.Resolve(ctx, "LYON")

	assert.Equal(t, []time.Duration{700 * time.Millisecond}, clock.Slept())
	assert.Equal(t, 2, c.Calls())
}

func TestResolve_EmptyCity(t *testing.T) {
	g := &fakeGeocoder{}
	c, _ := newTestCache(t, store.NewMemoryStore(nil), g)
	_, err := c.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, trips.ErrUnresolved)
	assert.Empty(t, g.calls)
}

func TestOpen_RejectsCorruptEntries(t *testing.T) {
	for name, value := range map[string]string{
		"out of range": `{"lat": 123, "lon": 2}`,
		"missing lon":  `{"lat": 48.8}`,
		"wrong type":   `"PARIS"`,
	} {
		t.Run(name, func(t *testing.T) {
			s := store.NewMemoryStore(map[string]json.RawMessage{"PARIS": json.RawMessage(value)})
			_, err := Open(context.Background(), s, nil)
			assert.ErrorIs(t, err, store.ErrCorrupt)
		})
	}
}

func TestOpen_LegacyNullIsNotFound(t *testing.T) {
	s := store.NewMemoryStore(map[string]json.RawMessage{
		"NOWHERE": json.RawMessage(`null`),
		"PARIS":   json.RawMessage(`{"lat": 48.8566, "lon": 2.3522}`),
	})
	g := &fakeGeocoder{}
	c, _ := newTestCache(t, s, g)

	_, found, ok := c.Peek("NOWHERE")
	assert.True(t, ok)
	assert.False(t, found)

	p, found, ok := c.Peek("PARIS")
	assert.True(t, ok && found)
	assert.Equal(t, paris, p)
	assert.Empty(t, g.calls)
}

func TestPin_OverwritesAndFlushes(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore(map[string]json.RawMessage{"SAINT PIERRE": json.RawMessage(`{"not_found": true}`)})
	c, _ := newTestCache(t, s, nil)

	curated := trips.GeoPoint{Lat: 46.79, Lon: 4.85}
	require.NoError(t, c.Pin("SAINT PIERRE", curated))
	assert.Error(t, c.Pin("SAINT PIERRE", trips.GeoPoint{Lat: 91}))
	assert.Error(t, c.Pin("", curated))

	p, err := c.Resolve(ctx, "SAINT PIERRE")
	require.NoError(t, err)
	assert.Equal(t, curated, p)

	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, 0, c.Pending())
	raw, _ := s.Load(ctx)
	assert.JSONEq(t, `{"lat":46.79,"lon":4.85}`, string(raw["SAINT PIERRE"]))
}

func TestFlush_NothingPending(t *testing.T) {
	s := store.NewMemoryStore(nil)
	c, _ := newTestCache(t, s, nil)
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 0, s.Saves())
}

func TestNominatim_Lookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "fr", r.URL.Query().Get("countrycodes"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		switch r.URL.Query().Get("q") {
		case "PARIS":
			_, _ = w.Write([]byte(`[{"lat":"48.8566","lon":"2.3522","display_name":"Paris"}]`))
		case "BROKEN":
			_, _ = w.Write([]byte(`[{"lat":"north","lon":"2.3"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	n := NewNominatim(srv.URL+"/", "railtrips-test", time.Second, WithCountryCodes("fr"))
	ctx := context.Background()

	p, err := n.Lookup(ctx, "PARIS")
	require.NoError(t, err)
	assert.Equal(t, paris, p)

	_, err = n.Lookup(ctx, "ATLANTIS")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = n.Lookup(ctx, "BROKEN")
	assert.Equal(t, trips.FailureBadData, trips.CategoryOf(err))
}
