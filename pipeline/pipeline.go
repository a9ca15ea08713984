package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/theoremus-urban-solutions/railtrips/dedup"
	"github.com/theoremus-urban-solutions/railtrips/metrics"
	"github.com/theoremus-urban-solutions/railtrips/trips"
	"github.com/theoremus-urban-solutions/railtrips/verify"
)

// Classifier annotates rows with distances. *distance.Engine implements it.
type Classifier interface {
	Annotate(ctx context.Context, rows []trips.AnnotatedTrip) ([]trips.AnnotatedTrip, trips.StageStats, error)
}

// Flusher persists pending cache entries. *geocode.Cache and
// *distance.RouteCache implement it.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Result is the outcome of one run.
type Result struct {
	RunID      string
	Event      string
	Trips      []trips.AnnotatedTrip
	Stages     []trips.StageStats
	Duplicates []dedup.Duplicate
	Rejected   []*trips.DataQualityError
}

// Stage returns the counts of the named stage.
func (r Result) Stage(name string) (trips.StageStats, bool) {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return trips.StageStats{}, false
}

type Pipeline struct {
	classifier Classifier
	flushers   []Flusher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	newRunID   func() string
}

type Option func(*Pipeline)

// WithFlushers sets the caches flushed, in order, after the distance stage.
func WithFlushers(f ...Flusher) Option {
	return func(p *Pipeline) { p.flushers = f }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithRunID fixes the run identifier generator.
func WithRunID(f func() string) Option {
	return func(p *Pipeline) { p.newRunID = f }
}

func New(classifier Classifier, opts ...Option) *Pipeline {
	p := &Pipeline{
		classifier: classifier,
		logger:     slog.Default(),
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes the records of one event.
func (p *Pipeline) Run(ctx context.Context, event string, records []trips.TripRecord) (Result, error) {
	start := time.Now()
	res := Result{RunID: p.newRunID(), Event: event}
	log := p.logger.With("run_id", res.RunID, "event", event)
	log.Info("run started", "records", len(records))

	// dedup
	d := dedup.Run(records)
	res.Duplicates, res.Rejected = d.Duplicates, d.Rejected
	for _, rej := range d.Rejected {
		log.Warn("record rejected", "index", rej.Index, "field", rej.Field, "error", rej.Error())
	}
	for _, dup := range d.Duplicates {
		log.Debug("duplicate leg dropped", "index", dup.Index,
			"traveler", dup.Record.Traveler.String(), "reference", dup.Record.Reference, "kept_reference", dup.KeptReference)
	}
	p.finishStage(log, &res, d.Stats(), nil, nil)

	// verify
	rows := trips.Wrap(d.Kept)
	verified, vs := verify.Annotate(rows)
	p.finishStage(log, &res, vs, rows, verified)

	// distance
	classified, ds, err := p.classifier.Annotate(ctx, verified)
	if err != nil {
		log.Error("distance stage aborted, nothing persisted", "error", err)
		return Result{}, fmt.Errorf("distance stage: %w", err)
	}
	p.finishStage(log, &res, ds, verified, classified)

	// Caches are independent and append-only: a failed flush does not stop
	// the others, and its entries are recomputed on the next run.
	var flushErrs []error
	for _, f := range p.flushers {
		if err := f.Flush(ctx); err != nil {
			log.Error("cache flush failed", "error", err)
			flushErrs = append(flushErrs, err)
		}
	}
	if err := errors.Join(flushErrs...); err != nil {
		return Result{}, err
	}

	res.Trips = classified
	elapsed := time.Since(start)
	p.metrics.SetRunDuration(elapsed.Seconds())
	log.Info("run finished", "rows", len(res.Trips), "duration", elapsed.Round(time.Millisecond).String())
	return res, nil
}

func (p *Pipeline) finishStage(log *slog.Logger, res *Result, stats trips.StageStats, before, after []trips.AnnotatedTrip) {
	res.Stages = append(res.Stages, stats)
	p.metrics.StageRecord(stats.Stage, "succeeded", stats.Succeeded)
	p.metrics.StageRecord(stats.Stage, "skipped", stats.Skipped)
	p.metrics.StageRecord(stats.Stage, "warned", stats.Warned)
	log.Info("stage finished", "stats", stats)

	agg := trips.NewWarningAggregator()
	for i := range after {
		for _, w := range after[i].Warnings {
			if !before[i].HasWarning(w) {
				agg.Add(w, example(after[i].Record))
			}
		}
	}
	agg.LogAll(log, stats.Stage, res.Event)
}

func example(r trips.TripRecord) string {
	return fmt.Sprintf("%s %s>%s", r.Traveler, r.Origin, r.Destination)
}
