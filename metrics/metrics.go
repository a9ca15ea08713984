// Package metrics exposes run counters for cache lookups, external calls and
// stage outcomes. The registry is private to each Metrics value, so parallel
// runs and tests never collide on the global default registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	registry       *prometheus.Registry
	CacheLookups   *prometheus.CounterVec
	ExternalCalls  *prometheus.CounterVec
	StageRecords   *prometheus.CounterVec
	RunDurationSec prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "railtrips_cache_lookups_total",
			Help: "Cache lookups by cache and result (hit, miss, alias_hit)",
		}, []string{"cache", "result"}),
		ExternalCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "railtrips_external_calls_total",
			Help: "Calls to external services by service and outcome",
		}, []string{"service", "outcome"}),
		StageRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "railtrips_stage_records_total",
			Help: "Records leaving each pipeline stage by outcome",
		}, []string{"stage", "outcome"}),
		RunDurationSec: factory.NewGauge(prometheus.GaugeOpts{
			Name: "railtrips_run_duration_seconds",
			Help: "Wall time of the last pipeline run",
		}),
	}
}

// The helpers below accept a nil receiver so components can run without
// metrics wired.

func (m *Metrics) CacheLookup(cache, result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

func (m *Metrics) ExternalCall(service, outcome string) {
	if m == nil {
		return
	}
	m.ExternalCalls.WithLabelValues(service, outcome).Inc()
}

func (m *Metrics) StageRecord(stage, outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.StageRecords.WithLabelValues(stage, outcome).Add(float64(n))
}

func (m *Metrics) SetRunDuration(seconds float64) {
	if m == nil {
		return
	}
	m.RunDurationSec.Set(seconds)
}

// Registry exposes the underlying gatherer.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteTextfile dumps every metric in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
