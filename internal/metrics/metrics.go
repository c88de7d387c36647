// Package metrics owns the prometheus registry and the counters the session
// and HTTP layers record into.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "costestimator"

// Metrics is a private registry plus the collectors registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	Saves        *prometheus.CounterVec
	Exports      *prometheus.CounterVec
	Searches     prometheus.Counter
	StoreLatency *prometheus.HistogramVec
	GrandTotal   prometheus.Gauge
	Requests     *prometheus.CounterVec
}

// New registers every collector on a fresh registry, including Go runtime stats.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimate_saves_total",
			Help:      "Estimate saves by kind (manual, auto) and result (ok, error).",
		}, []string{"kind", "result"}),
		Exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Estimate exports by format and result.",
		}, []string{"format", "result"}),
		Searches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_searches_total",
			Help:      "Catalog searches that reached the catalog after debouncing.",
		}),
		StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_seconds",
			Help:      "Latency of snapshot store operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"driver", "op"}),
		GrandTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "estimate_grand_total",
			Help:      "Grand total of the live estimate after the last change.",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "code"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Saves, m.Exports, m.Searches, m.StoreLatency, m.GrandTotal, m.Requests,
	)
	return m
}

// ObserveStore records how long a store operation took since start.
func (m *Metrics) ObserveStore(driver, op string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreLatency.WithLabelValues(driver, op).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
