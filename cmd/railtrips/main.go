package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/theoremus-urban-solutions/railtrips/config"
	"github.com/theoremus-urban-solutions/railtrips/distance"
	"github.com/theoremus-urban-solutions/railtrips/geocode"
	"github.com/theoremus-urban-solutions/railtrips/internal"
	"github.com/theoremus-urban-solutions/railtrips/internal/pacer"
	"github.com/theoremus-urban-solutions/railtrips/metrics"
	"github.com/theoremus-urban-solutions/railtrips/pipeline"
	"github.com/theoremus-urban-solutions/railtrips/routing"
	"github.com/theoremus-urban-solutions/railtrips/store"
	"github.com/theoremus-urban-solutions/railtrips/tabular"
	"github.com/theoremus-urban-solutions/railtrips/trips"
)

type options struct {
	configPath string
	mode       string
	event      string
	in         string
	out        string
	city       string
	lat        float64
	lon        float64
	latSet     bool
	lonSet     bool
	from       string
	to         string
	offline    bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "config file (default: config.yml, ./config/config.yml)")
	flag.StringVar(&o.mode, "mode", "run", "run|pin|inspect")
	flag.StringVar(&o.event, "event", "", "event identifier (run)")
	flag.StringVar(&o.in, "in", "-", "input trip table, CSV (run)")
	flag.StringVar(&o.out, "out", "-", "output report, CSV (run)")
	flag.BoolVar(&o.offline, "offline", false, "answer from caches only, no geocoding or routing calls (run)")
	flag.StringVar(&o.city, "city", "", "city name (pin, inspect)")
	flag.Float64Var(&o.lat, "lat", 0, "latitude (pin)")
	flag.Float64Var(&o.lon, "lon", 0, "longitude (pin)")
	flag.StringVar(&o.from, "from", "", "route origin (inspect)")
	flag.StringVar(&o.to, "to", "", "route destination (inspect)")
	flag.Parse()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			o.latSet = true
		case "lon":
			o.lonSet = true
		}
	})

	cfg, err := config.LoadAppConfig(o.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := internal.InitLogging(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, cfg, o, logger, os.Stdout); err != nil {
		logger.Error("railtrips failed", "mode", o.mode, "error", err)
		stop()
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, cfg config.AppConfig, o options, logger *slog.Logger, stdout io.Writer) error {
	switch o.mode {
	case "run":
		return run(ctx, cfg, o, logger)
	case "pin":
		return pin(ctx, cfg, o, logger)
	case "inspect":
		return inspect(ctx, cfg, o, logger, stdout)
	default:
		return fmt.Errorf("unknown mode %q", o.mode)
	}
}

type caches struct {
	geo    *geocode.Cache
	routes *distance.RouteCache
	close  func() error
}

// openCaches loads both caches. A corrupt store is fatal.
func openCaches(ctx context.Context, cfg config.AppConfig, geocoder geocode.Geocoder, m *metrics.Metrics, logger *slog.Logger) (*caches, error) {
	geoStore, routeStore, closeFn, err := store.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	geo, err := geocode.Open(ctx, geoStore, geocoder,
		geocode.WithPacer(pacer.New(cfg.Geocoder.MinInterval(), pacer.SystemClock())),
		geocode.WithMetrics(m),
		geocode.WithLogger(logger))
	if err != nil {
		closeFn()
		return nil, err
	}
	routes, err := distance.OpenRouteCache(ctx, routeStore,
		distance.WithCacheMetrics(m),
		distance.WithCacheLogger(logger))
	if err != nil {
		closeFn()
		return nil, err
	}
	logger.Info("caches loaded", "backend", cfg.Cache.Backend,
		"geocoding", geoStore.Describe(), "geocoding_entries", geo.Len(),
		"routes", routeStore.Describe(), "route_entries", routes.Len())
	return &caches{geo: geo, routes: routes, close: closeFn}, nil
}

func run(ctx context.Context, cfg config.AppConfig, o options, logger *slog.Logger) error {
	if o.event == "" {
		return errors.New("-event is required")
	}
	in, err := openInput(o.in)
	if err != nil {
		return err
	}
	records, err := tabular.ReadTrips(in)
	in.Close()
	if err != nil {
		return err
	}

	m := metrics.New()
	var geocoder geocode.Geocoder
	var router routing.Router
	if !o.offline {
		geocoder = geocode.NewNominatim(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent, cfg.Geocoder.Timeout(),
			geocode.WithCountryCodes(cfg.Geocoder.CountryCodes),
			geocode.WithEmail(cfg.Geocoder.Email))
		router = routing.NewSignalClient(cfg.Router.BaseURL, cfg.Router.UserAgent, cfg.Router.Timeout())
	}

	c, err := openCaches(ctx, cfg, geocoder, m, logger)
	if err != nil {
		return err
	}
	defer c.close()

	engine := distance.NewEngine(c.routes, c.geo, router,
		distance.WithRouterPacer(pacer.New(cfg.Router.MinInterval(), pacer.SystemClock())),
		distance.WithMaxConsecutiveFailures(cfg.Router.MaxConsecutiveFailures),
		distance.WithMetrics(m),
		distance.WithLogger(logger))
	p := pipeline.New(engine,
		pipeline.WithFlushers(c.geo, c.routes),
		pipeline.WithMetrics(m),
		pipeline.WithLogger(logger))

	res, err := p.Run(ctx, o.event, records)
	if err != nil {
		return err
	}
	es, gs := engine.Stats(), c.geo.Stats()
	logger.Info("cache activity",
		"run_id", res.RunID,
		"route_cache_hits", es.CacheHits, "route_alias_hits", es.AliasHits,
		"api_calls", es.APICalls, "failures", es.Failures, "skipped", es.Skipped,
		"geocoding_hits", gs.Hits, "geocoding_calls", c.geo.Calls(), "geocoding_not_found", gs.NotFound)

	if err := writeOutput(o.out, func(w io.Writer) error { return tabular.WriteTrips(w, res.Trips) }); err != nil {
		return err
	}
	return m.WriteTextfile(cfg.Metrics.Textfile)
}

func pin(ctx context.Context, cfg config.AppConfig, o options, logger *slog.Logger) error {
	city := trips.NormalizeCity(o.city)
	if city.IsZero() {
		return errors.New("-city is required")
	}
	if !o.latSet || !o.lonSet {
		return errors.New("-lat and -lon are required")
	}
	c, err := openCaches(ctx, cfg, nil, nil, logger)
	if err != nil {
		return err
	}
	defer c.close()
	if err := c.geo.Pin(city, trips.GeoPoint{Lat: o.lat, Lon: o.lon}); err != nil {
		return err
	}
	return c.geo.Flush(ctx)
}

func inspect(ctx context.Context, cfg config.AppConfig, o options, logger *slog.Logger, stdout io.Writer) error {
	c, err := openCaches(ctx, cfg, nil, nil, logger)
	if err != nil {
		return err
	}
	defer c.close()

	if o.city != "" {
		city := trips.NormalizeCity(o.city)
		p, found, ok := c.geo.Peek(city)
		switch {
		case !ok:
			fmt.Fprintf(stdout, "%s: not cached\n", city)
		case !found:
			fmt.Fprintf(stdout, "%s: not found (cached)\n", city)
		default:
			fmt.Fprintf(stdout, "%s: %s\n", city, p)
		}
		return nil
	}

	key := trips.NewRouteKey(o.from, o.to)
	if !key.Valid() {
		return errors.New("inspect needs -city, or -from and -to")
	}
	b, ok := c.routes.Get(key)
	if !ok {
		fmt.Fprintf(stdout, "%s (%s): not cached\n", key, key.Hash())
		return nil
	}
	fmt.Fprintf(stdout, "%s (%s): %.2f km, high-speed %.2f km (%.1f%%), conventional %.2f km (%.1f%%), unknown %.2f km (%.1f%%)\n",
		key, key.Hash(), b.TotalKM,
		b.HighSpeedKM, b.HighSpeedPct(),
		b.ConventionalKM, b.ConventionalPct(),
		b.UnknownKM, b.UnknownPct())
	return nil
}
