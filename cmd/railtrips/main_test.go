package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/railtrips/config"
	"github.com/theoremus-urban-solutions/railtrips/internal"
	"github.com/theoremus-urban-solutions/railtrips/trips"
)

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Cache.GeocodingPath = filepath.Join(dir, "geocoding_cache.json")
	cfg.Cache.RoutesPath = filepath.Join(dir, "trip_cache.json")
	return cfg
}

func TestPinThenInspect(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	logger := internal.DiscardLogger()

	err := dispatch(ctx, cfg, options{mode: "pin", city: "Saint-Étienne", lat: 45.4431, lon: 4.3999, latSet: true, lonSet: true}, logger, nil)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, dispatch(ctx, cfg, options{mode: "inspect", city: "saint etienne"}, logger, &out))
	assert.Equal(t, "SAINT ETIENNE: (45.44310, 4.39990)\n", out.String())

	out.Reset()
	require.NoError(t, dispatch(ctx, cfg, options{mode: "inspect", city: "Lyon"}, logger, &out))
	assert.Equal(t, "LYON: not cached\n", out.String())
}

func TestPinRequiresCoordinates(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	logger := internal.DiscardLogger()

	require.NoError(t, dispatch(ctx, cfg, options{mode: "pin", city: "Lyon", lat: 45.76, lon: 4.83, latSet: true, lonSet: true}, logger, nil))

	assert.Error(t, dispatch(ctx, cfg, options{mode: "pin", city: "Lyon"}, logger, nil))
	assert.Error(t, dispatch(ctx, cfg, options{mode: "pin", city: "Lyon", lat: 45.0, latSet: true}, logger, nil))

	var out bytes.Buffer
	require.NoError(t, dispatch(ctx, cfg, options{mode: "inspect", city: "Lyon"}, logger, &out))
	assert.Equal(t, "LYON: (45.76000, 4.83000)\n", out.String())
}

func TestInspectRoute(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	key := trips.NewRouteKey("Paris", "Lyon")
	content := `{"` + key.Hash() + `": {"distance_km": 400, "lgv_km": 300, "ter_km": 100, "unknown_km": 0}}`
	require.NoError(t, os.WriteFile(cfg.Cache.RoutesPath, []byte(content), 0o644))

	var out bytes.Buffer
	require.NoError(t, dispatch(ctx, cfg, options{mode: "inspect", from: "paris", to: "LYON"}, internal.DiscardLogger(), &out))
	assert.True(t, strings.HasPrefix(out.String(), "PARIS|LYON ("+key.Hash()+"): 400.00 km, high-speed 300.00 km (75.0%)"))
}

func TestRunOfflineFromCaches(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	key := trips.NewRouteKey("Paris", "Lyon")
	require.NoError(t, os.WriteFile(cfg.Cache.RoutesPath,
		[]byte(`{"`+key.Hash()+`": {"distance_km": 400, "lgv_km": 300, "ter_km": 100, "unknown_km": 0}}`), 0o644))

	dir := t.TempDir()
	in := filepath.Join(dir, "trips.csv")
	out := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(in, []byte("Nom;Prenom;Reference;Depart;Destination;TrainType\n"+
		"Dupont;Emile;A;Paris;Lyon;TGV\n"+
		"Dupont;Emile;A;Lyon;Paris;TGV\n"), 0o644))

	err := dispatch(ctx, cfg, options{mode: "run", event: "WE1", in: in, out: out, offline: true}, internal.DiscardLogger(), nil)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "400", rows[1][8])
	assert.Equal(t, "unresolved_endpoint", rows[2][16], "offline runs never geocode")
}

func TestDispatchErrors(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	logger := internal.DiscardLogger()

	assert.Error(t, dispatch(ctx, cfg, options{mode: "serve"}, logger, nil))
	assert.Error(t, dispatch(ctx, cfg, options{mode: "run"}, logger, nil))
	assert.Error(t, dispatch(ctx, cfg, options{mode: "pin"}, logger, nil))
	assert.Error(t, dispatch(ctx, cfg, options{mode: "pin", city: "Paris", lat: 100, latSet: true, lonSet: true}, logger, nil))
	assert.Error(t, dispatch(ctx, cfg, options{mode: "inspect"}, logger, nil))

	require.NoError(t, os.WriteFile(cfg.Cache.GeocodingPath, []byte("{broken"), 0o644))
	assert.Error(t, dispatch(ctx, cfg, options{mode: "inspect", city: "Paris"}, logger, &bytes.Buffer{}))
}
