// Package metrics exposes engine counters in the Prometheus text format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "planner"

// Metrics holds the engine's collectors on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	Commits       *prometheus.CounterVec
	CommitRetries prometheus.Counter
	Reverts       prometheus.Counter
	QueueWaits    prometheus.Counter
	Refusals      prometheus.Counter
	Subscriptions prometheus.Gauge
	CommitSeconds prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Commits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_commits_total",
			Help:      "Order writes by kind and outcome.",
		}, []string{"kind", "outcome"}),
		CommitRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_commit_retries_total",
			Help:      "Order writes that failed and were left for retry.",
		}),
		Reverts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drag_reverts_total",
			Help:      "Drag sessions reverted to store state after a failed write.",
		}),
		QueueWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_queue_waits_total",
			Help:      "Commits that waited for another write on the same scope.",
		}),
		Refusals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placeholder_refusals_total",
			Help:      "Query bindings refused because the key was not a persisted id.",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscriptions",
			Help:      "Mounted working copies with a live store subscription.",
		}),
		CommitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_commit_seconds",
			Help:      "Time spent writing an order change, queue wait included.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Commits,
		m.CommitRetries,
		m.Reverts,
		m.QueueWaits,
		m.Refusals,
		m.Subscriptions,
		m.CommitSeconds,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
