// Package metrics exposes Prometheus instrumentation for sessions, turns
// and ingestion
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Turn outcomes
const (
	OutcomeAnswered = "answered"
	OutcomeFailed   = "failed"
	OutcomeTimeout  = "timeout"
	OutcomeUnbound  = "unbound"
	OutcomeEmpty    = "empty"
)

// Ingestion outcomes
const (
	OutcomeBound       = "bound"
	OutcomeParseError  = "parse_error"
	OutcomeBindFailure = "bind_error"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive   prometheus.Gauge
	sessionEvictions *prometheus.CounterVec
	turnsTotal       *prometheus.CounterVec
	turnDuration     prometheus.Histogram
	ingestionsTotal  *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, along with the Go
// runtime and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := newMetrics(reg)
	m.registry = reg
	return m
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// sessionsActive tracks live sessions in the store
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tabletalk_sessions_active",
			Help: "Number of sessions currently held in memory",
		}),

		// sessionEvictions counts sessions leaving the store by reason
		sessionEvictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabletalk_session_evictions_total",
			Help: "Total sessions removed from the store by reason",
		}, []string{"reason"}),

		// turnsTotal counts conversation turns by outcome
		turnsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabletalk_turns_total",
			Help: "Total conversation turns by outcome",
		}, []string{"outcome"}),

		// turnDuration tracks agent invocation latency
		turnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tabletalk_turn_duration_seconds",
			Help:    "Agent invocation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 9), // 250ms to ~64s
		}),

		// ingestionsTotal counts uploads and search bindings by outcome
		ingestionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tabletalk_ingestions_total",
			Help: "Total ingestion attempts by outcome",
		}, []string{"outcome"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SetSessions records the current session count
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessionsActive.Set(float64(n))
}

// SessionEvicted counts one removal
func (m *Metrics) SessionEvicted(reason string) {
	if m == nil {
		return
	}
	m.sessionEvictions.WithLabelValues(reason).Inc()
}

// TurnCompleted counts one turn. A zero duration is not observed
func (m *Metrics) TurnCompleted(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.turnDuration.Observe(d.Seconds())
	}
}

// Ingested counts one ingestion attempt
func (m *Metrics) Ingested(outcome string) {
	if m == nil {
		return
	}
	m.ingestionsTotal.WithLabelValues(outcome).Inc()
}
