package distance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/theoremus-urban-solutions/railtrips/internal/pacer"
	"github.com/theoremus-urban-solutions/railtrips/metrics"
	"github.com/theoremus-urban-solutions/railtrips/routing"
	"github.com/theoremus-urban-solutions/railtrips/trips"
	"github.com/theoremus-urban-solutions/railtrips/utils"
)

// Locator resolves cities to points. *geocode.Cache implements it.
type Locator interface {
	Resolve(ctx context.Context, city trips.NormalizedCity) (trips.GeoPoint, error)
	// Peek answers from cache only.
	Peek(city trips.NormalizedCity) (p trips.GeoPoint, found, ok bool)
}

// Source tells where a classification came from.
type Source string

const (
	SourceCache  Source = "cache"
	SourceAlias  Source = "alias"
	SourceRouter Source = "router"
	SourceNone   Source = "none"
)

// Outcome is the classification of one RouteKey. Distance and CrowKM are nil
// when they could not be computed.
type Outcome struct {
	Key      trips.RouteKey
	Source   Source
	Distance *trips.RouteDistanceBreakdown
	CrowKM   *float64
	Warnings []trips.Warning
	Err      error
}

// Stats counts engine activity for one run.
type Stats struct {
	CacheHits  int
	AliasHits  int
	APICalls   int
	Failures   int
	Skipped    int
	Unresolved int
}

// Engine classifies routes. It is single-threaded: one Engine per run.
type Engine struct {
	routes  *RouteCache
	locator Locator
	router  routing.Router
	pacer   *pacer.Pacer
	metrics *metrics.Metrics
	logger  *slog.Logger

	maxFailures int
	failures    int
	tripped     bool
	stats       Stats
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRouterPacer sets the pacer spacing router calls.
func WithRouterPacer(p *pacer.Pacer) EngineOption {
	return func(e *Engine) { e.pacer = p }
}

// WithMaxConsecutiveFailures stops routing for the rest of the run after n
// calls in a row that the router could not answer (timeout, outage or
// throttling). Refusals such as "no route" do not count. Zero disables the
// limit.
func WithMaxConsecutiveFailures(n int) EngineOption {
	return func(e *Engine) { e.maxFailures = n }
}

func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine builds an engine. A nil router makes every cache miss
// routing_skipped.
func NewEngine(routes *RouteCache, locator Locator, router routing.Router, opts ...EngineOption) *Engine {
	e := &Engine{
		routes:  routes,
		locator: locator,
		router:  router,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.pacer == nil {
		e.pacer = pacer.New(time.Second, pacer.SystemClock())
	}
	return e
}

func (e *Engine) Stats() Stats { return e.stats }

// Tripped reports whether routing was stopped after repeated failures.
func (e *Engine) Tripped() bool { return e.tripped }

// Classify computes the breakdown of one route.
func (e *Engine) Classify(ctx context.Context, key trips.RouteKey) Outcome {
	out := Outcome{Key: key, Source: SourceNone}
	switch {
	case !key.Valid():
		out.Warnings = append(out.Warnings, trips.WarningMissingCity)
		return out
	case key.Loop():
		out.Warnings = append(out.Warnings, trips.WarningOriginEqualsDestination)
		return out
	}

	if b, ok := e.routes.Get(key); ok {
		e.stats.CacheHits++
		out.Source = SourceCache
		out.Distance = &b
		if from, to, ok := e.peek(key); ok {
			e.setCrow(&out, from, to)
		}
		return out
	}

	from, to, err := e.resolve(ctx, key)
	if err != nil {
		e.stats.Unresolved++
		out.Err = err
		var se *trips.ExternalServiceError
		if errors.As(err, &se) {
			out.Warnings = append(out.Warnings, trips.WarningGeocodingFailed)
		} else {
			out.Warnings = append(out.Warnings, trips.WarningUnresolvedEndpoint)
		}
		e.logger.Info("route endpoint unresolved", "route", key.String(), "error", err)
		return out
	}
	crow := utils.RoundTo(from.DistanceKM(to), 2)
	out.CrowKM = &crow

	if b, ok := e.routes.GetByPoints(from, to); ok {
		e.stats.AliasHits++
		if err := e.routes.Put(key, from, to, b); err != nil {
			e.logger.Warn("alias entry rejected", "route", key.String(), "error", err)
		}
		out.Source = SourceAlias
		out.Distance = &b
		e.checkCrow(&out)
		return out
	}

	if e.router == nil || e.tripped {
		e.stats.Skipped++
		out.Warnings = append(out.Warnings, trips.WarningRoutingSkipped)
		return out
	}

	b, err := e.route(ctx, key, from, to)
	if err != nil {
		out.Err = err
		if errors.Is(err, context.Canceled) {
			return out
		}
		out.Warnings = append(out.Warnings, trips.WarningRoutingFailed)
		return out
	}
	out.Source = SourceRouter
	out.Distance = &b
	e.checkCrow(&out)
	return out
}

func (e *Engine) resolve(ctx context.Context, key trips.RouteKey) (from, to trips.GeoPoint, err error) {
	if e.locator == nil {
		return from, to, trips.ErrUnresolved
	}
	if from, err = e.locator.Resolve(ctx, key.Origin); err != nil {
		return from, to, err
	}
	to, err = e.locator.Resolve(ctx, key.Destination)
	return from, to, err
}

func (e *Engine) peek(key trips.RouteKey) (from, to trips.GeoPoint, ok bool) {
	if e.locator == nil {
		return from, to, false
	}
	from, found, known := e.locator.Peek(key.Origin)
	if !found || !known {
		return from, to, false
	}
	to, found, known = e.locator.Peek(key.Destination)
	return from, to, found && known
}

func (e *Engine) route(ctx context.Context, key trips.RouteKey, from, to trips.GeoPoint) (trips.RouteDistanceBreakdown, error) {
	var segments []routing.Segment
	e.stats.APICalls++
	err := e.pacer.Do(ctx, func(ctx context.Context) error {
		var err error
		segments, err = e.router.Route(ctx, from, to)
		return err
	})
	var b trips.RouteDistanceBreakdown
	if err == nil {
		b = routing.Breakdown(segments)
		err = e.routes.Put(key, from, to, b)
	}
	if err != nil {
		e.fail(key, err)
		return b, err
	}
	e.failures = 0
	e.metrics.ExternalCall("router", "ok")
	e.logger.Debug("route classified", "route", key.String(), "distance_km", b.TotalKM, "lgv_pct", b.HighSpeedPct())
	return b, nil
}

func (e *Engine) fail(key trips.RouteKey, err error) {
	category := trips.CategoryOf(err)
	e.stats.Failures++
	e.metrics.ExternalCall("router", string(category))
	e.logger.Warn("routing failed", "route", key.String(), "category", category, "error", err)
	if !category.Unavailable() {
		// the router answered
		e.failures = 0
		return
	}
	e.failures++
	if e.maxFailures > 0 && e.failures >= e.maxFailures && !e.tripped {
		e.tripped = true
		e.logger.Error("routing disabled for the rest of the run", "consecutive_failures", e.failures)
	}
}

func (e *Engine) setCrow(out *Outcome, from, to trips.GeoPoint) {
	crow := utils.RoundTo(from.DistanceKM(to), 2)
	out.CrowKM = &crow
	e.checkCrow(out)
}

// checkCrow flags a routed distance shorter than the straight line between
// the endpoints, which points at a wrong geocode.
func (e *Engine) checkCrow(out *Outcome) {
	if out.Distance == nil || out.CrowKM == nil {
		return
	}
	if out.Distance.TotalKM+trips.BreakdownToleranceKM < *out.CrowKM {
		out.Warnings = append(out.Warnings, trips.WarningShorterThanCrowLine)
	}
}

// Annotate classifies every distinct RouteKey of rows, in order of first
// appearance, and applies the outcome to each row sharing the key. It only
// returns an error when ctx is done; the rows are then incomplete and must
// not be persisted.
func (e *Engine) Annotate(ctx context.Context, rows []trips.AnnotatedTrip) ([]trips.AnnotatedTrip, trips.StageStats, error) {
	stats := trips.StageStats{Stage: "distance"}
	outcomes := make(map[trips.RouteKey]Outcome)
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		key := routeKeyOf(row.Record)
		if _, done := outcomes[key]; done {
			continue
		}
		o := e.Classify(ctx, key)
		if o.Err != nil && ctx.Err() != nil {
			return nil, stats, ctx.Err()
		}
		outcomes[key] = o
	}

	out := make([]trips.AnnotatedTrip, len(rows))
	for i, row := range rows {
		o := outcomes[routeKeyOf(row.Record)]
		before := len(row.Warnings)
		if o.Distance != nil {
			row = row.WithDistance(*o.Distance)
			stats.Succeeded++
		} else {
			stats.Skipped++
		}
		if o.CrowKM != nil {
			row = row.WithCrowKM(*o.CrowKM)
		}
		for _, w := range o.Warnings {
			row = row.WithWarning(w)
		}
		if len(row.Warnings) > before {
			stats.Warned++
		}
		out[i] = row
	}
	return out, stats, nil
}

func routeKeyOf(r trips.TripRecord) trips.RouteKey {
	key, _ := r.RouteKey()
	return key
}
