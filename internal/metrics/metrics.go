package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "presence"

// Metrics groups the collectors the parser, sweeper and dispatcher report to.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	events        *prometheus.CounterVec
	malformed     prometheus.Counter
	alerts        *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	swept         prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Presence events ingested, by outcome.",
		}, []string{"outcome"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_malformed_total",
			Help:      "Presence events dropped as malformed.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Disconnect alerts by result.",
		}, []string{"result"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Sweep invocations by result.",
		}, []string{"result"}),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sweep_duration_seconds",
			Help:      "Time taken by one sweep invocation.",
			Buckets:   prometheus.DefBuckets,
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_devices_scanned_total",
			Help:      "Pending devices examined by sweeps.",
		}),
	}
	m.registry.MustRegister(
		m.events,
		m.malformed,
		m.alerts,
		m.sweeps,
		m.sweepDuration,
		m.swept,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) EventIngested(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) EventMalformed() {
	if m == nil {
		return
	}
	m.malformed.Inc()
}

func (m *Metrics) AlertDispatched() {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues("sent").Inc()
}

func (m *Metrics) AlertFailed() {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues("failed").Inc()
}

// SweepFinished records one invocation; result is "ok", "error" or "skipped".
func (m *Metrics) SweepFinished(result string, scanned int, took time.Duration) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(result).Inc()
	if result == "skipped" {
		return
	}
	m.swept.Add(float64(scanned))
	m.sweepDuration.Observe(took.Seconds())
}
