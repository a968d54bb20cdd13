// Package obs exposes Prometheus instrumentation for the daemon.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors. A nil *Metrics is valid and records
// nothing, so wiring stays optional in tests.
type Metrics struct {
	fetchOutcomes *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	cacheEntries  prometheus.Gauge
	badgeRequests prometheus.Counter
	compareBuilds prometheus.Counter
	detailStages  *prometheus.CounterVec
	commandsTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		fetchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staylens_fetch_outcomes_total",
			Help: "Price fetch attempts by terminal outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "staylens_fetch_duration_seconds",
			Help:    "Wall time of one price fetch and extraction.",
			Buckets: prometheus.DefBuckets,
		}),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "staylens_price_cache_entries",
			Help: "Entries currently held in the price cache.",
		}),
		badgeRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staylens_badge_requests_total",
			Help: "Calendar badge computations served.",
		}),
		compareBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staylens_compare_builds_total",
			Help: "Comparison matrices built.",
		}),
		detailStages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staylens_detail_stage_total",
			Help: "Detail snapshots captured by pipeline stage.",
		}, []string{"stage"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staylens_commands_total",
			Help: "Queue commands processed by type.",
		}, []string{"command"}),
	}
	reg.MustRegister(
		m.fetchOutcomes, m.fetchDuration, m.cacheEntries,
		m.badgeRequests, m.compareBuilds, m.detailStages, m.commandsTotal,
	)
	return m
}

func (m *Metrics) IncFetchOutcome(outcome string) {
	if m == nil {
		return
	}
	m.fetchOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveFetchDuration(seconds float64) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(seconds)
}

func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

func (m *Metrics) IncBadgeRequests() {
	if m == nil {
		return
	}
	m.badgeRequests.Inc()
}

func (m *Metrics) IncCompareBuilds() {
	if m == nil {
		return
	}
	m.compareBuilds.Inc()
}

func (m *Metrics) IncDetailStage(stage string) {
	if m == nil {
		return
	}
	m.detailStages.WithLabelValues(stage).Inc()
}

func (m *Metrics) IncCommand(command string) {
	if m == nil {
		return
	}
	m.commandsTotal.WithLabelValues(command).Inc()
}
