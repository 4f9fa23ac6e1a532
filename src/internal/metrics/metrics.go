// FILE: peerxlat/src/internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "peerxlat"

// Reload results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics owns a private registry so several instances (one per service, or
// per test) never collide on the default registerer.
type Metrics struct {
	registry *prometheus.Registry

	Translations prometheus.Counter
	Rewrites     prometheus.Counter
	Stops        prometheus.Counter
	Reloads      *prometheus.CounterVec
	LoadFailures *prometheus.CounterVec
	Rules        prometheus.Gauge
	Generation   prometheus.Gauge
	LookupFrames *prometheus.CounterVec
}

// New creates and registers the translator and reload collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Translations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translator",
			Name:      "translations_total",
			Help:      "Peer addresses evaluated against the active ruleset.",
		}),
		Rewrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translator",
			Name:      "rewrites_total",
			Help:      "Peer addresses rewritten by a translate rule.",
		}),
		Stops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "translator",
			Name:      "stops_total",
			Help:      "Evaluations ended by a stopper rule.",
		}),
		Reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reload",
			Name:      "attempts_total",
			Help:      "Ruleset reload attempts by result.",
		}, []string{"result"}),
		LoadFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reload",
			Name:      "failures_total",
			Help:      "Failed ruleset loads by cause.",
		}, []string{"cause"}),
		Rules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ruleset",
			Name:      "rules",
			Help:      "Rules in the active ruleset.",
		}),
		Generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ruleset",
			Name:      "generation",
			Help:      "Number of ruleset commits since start.",
		}),
		LookupFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lookup",
			Name:      "frames_total",
			Help:      "Lookup protocol frames by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.Translations,
		m.Rewrites,
		m.Stops,
		m.Reloads,
		m.LoadFailures,
		m.Rules,
		m.Generation,
		m.LookupFrames,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the registry for the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveReload records the outcome of one load attempt and the state of the
// store afterwards.
func (m *Metrics) ObserveReload(cause string, rules int, generation uint64) {
	if m == nil {
		return
	}
	if cause == "" || cause == "none" {
		m.Reloads.WithLabelValues(ResultSuccess).Inc()
	} else {
		m.Reloads.WithLabelValues(ResultFailure).Inc()
		m.LoadFailures.WithLabelValues(cause).Inc()
	}
	m.Rules.Set(float64(rules))
	m.Generation.Set(float64(generation))
}
