// Package metrics exposes prometheus collectors for shared vitality activity.
//
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether metrics are enabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Delta kinds used as the "kind" label.
const (
	KindDamage = "damage"
	KindHeal   = "heal"
)

// Metrics holds the engine collectors.
type Metrics struct {
	registry *prometheus.Registry

	deltas          *prometheus.CounterVec
	depletions      prometheus.Counter
	regenSuppressed prometheus.Counter
	watchers        prometheus.Gauge
	groups          prometheus.Gauge
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		deltas: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "syncedhp_deltas_applied_total",
				Help: "Vitality deltas applied to a group pool",
			},
			[]string{"kind"},
		),
		depletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncedhp_pool_depletions_total",
			Help: "Times a group pool reached zero and was reset",
		}),
		regenSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "syncedhp_regen_suppressed_total",
			Help: "Satiation heals cancelled because the group was not well fed",
		}),
		watchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "syncedhp_respawn_watchers",
			Help: "Respawn watchers currently polling",
		}),
		groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "syncedhp_groups",
			Help: "Groups held by the registry",
		}),
	}

	m.registry.MustRegister(m.deltas, m.depletions, m.regenSuppressed, m.watchers, m.groups)
	return m
}

// Handler serves the collectors in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Delta records one applied delta of the given kind.
func (m *Metrics) Delta(kind string) {
	if m == nil {
		return
	}
	m.deltas.WithLabelValues(kind).Inc()
}

// Depleted records a pool reset.
func (m *Metrics) Depleted() {
	if m == nil {
		return
	}
	m.depletions.Inc()
}

// RegenSuppressed records a cancelled satiation heal.
func (m *Metrics) RegenSuppressed() {
	if m == nil {
		return
	}
	m.regenSuppressed.Inc()
}

// WatcherStarted and WatcherStopped track in-flight respawn watchers.
func (m *Metrics) WatcherStarted() {
	if m == nil {
		return
	}
	m.watchers.Inc()
}

func (m *Metrics) WatcherStopped() {
	if m == nil {
		return
	}
	m.watchers.Dec()
}

// SetGroups records the current number of groups.
func (m *Metrics) SetGroups(n int) {
	if m == nil {
		return
	}
	m.groups.Set(float64(n))
}

// Collectors exposes the underlying collectors for tests.
func (m *Metrics) Collectors() (deltas *prometheus.CounterVec, depletions, regenSuppressed prometheus.Counter, watchers, groups prometheus.Gauge) {
	return m.deltas, m.depletions, m.regenSuppressed, m.watchers, m.groups
}
