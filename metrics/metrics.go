// Package metrics exposes Prometheus counters for the bot.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "jira_insights"

// Drop reasons.
const (
	DropDuplicate = "duplicate"
	DropDebounced = "debounced"
)

// Metrics owns its registry so several instances can coexist in tests. A nil *Metrics
// records nothing.
type Metrics struct {
	registry        *prometheus.Registry
	events          *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	analyses        *prometheus.CounterVec
	summaryFailures *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound Slack events and interactions by kind.",
		}, []string{"kind"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_total",
			Help:      "Requests dropped before any work, by reason.",
		}, []string{"reason"}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Background analyses by view and outcome.",
		}, []string{"view", "outcome"}),
		summaryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_failures_total",
			Help:      "Issues that fell back to a title-only summary.",
		}, []string{"component"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of background analyses.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"view"}),
	}
	m.registry.MustRegister(
		m.events, m.dropped, m.analyses, m.summaryFailures, m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

func (m *Metrics) Dropped(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

// Analysis records a finished background analysis.
func (m *Metrics) Analysis(view, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(view, outcome).Inc()
	m.duration.WithLabelValues(view).Observe(took.Seconds())
}

func (m *Metrics) SummaryFailed(component string) {
	if m == nil {
		return
	}
	m.summaryFailures.WithLabelValues(component).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
