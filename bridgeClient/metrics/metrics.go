// Package metrics holds the relay's Prometheus collectors. Every method is
// safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fsa"

type Metrics struct {
	registry *prometheus.Registry

	rpcCalls           *prometheus.CounterVec
	rpcRateLimitWaits  *prometheus.CounterVec
	scanQueries        *prometheus.CounterVec
	logsMatched        *prometheus.CounterVec
	confirmationPasses *prometheus.CounterVec
	flows              *prometheus.CounterVec
	flowDuration       *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rpcCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "calls_total",
			Help:      "RPC calls by ledger, method and outcome class",
		}, []string{"ledger", "method", "status"}),
		rpcRateLimitWaits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rpc",
			Name:      "rate_limit_waits_total",
			Help:      "RPC calls delayed by the client side rate limiter",
		}, []string{"ledger"}),
		scanQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "queries_total",
			Help:      "Log queries issued by the event scanner",
		}, []string{"status"}),
		logsMatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scanner",
			Name:      "logs_matched_total",
			Help:      "Logs yielded by the event scanner, by event signature",
		}, []string{"topic"}),
		confirmationPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "confirmer",
			Name:      "passes_total",
			Help:      "Scan passes performed while waiting for an event",
		}, []string{"event"}),
		flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "flows_total",
			Help:      "Bridge flows by kind and terminal status",
		}, []string{"flow", "status"}),
		flowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "flow_duration_seconds",
			Help:      "Wall time from first submission to terminal status",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"flow"}),
	}

	m.registry.MustRegister(
		m.rpcCalls,
		m.rpcRateLimitWaits,
		m.scanQueries,
		m.logsMatched,
		m.confirmationPasses,
		m.flows,
		m.flowDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) RecordRPCCall(ledger, method, status string) {
	if m == nil {
		return
	}
	m.rpcCalls.WithLabelValues(ledger, method, status).Inc()
}

func (m *Metrics) IncRateLimitWait(ledger string) {
	if m == nil {
		return
	}
	m.rpcRateLimitWaits.WithLabelValues(ledger).Inc()
}

func (m *Metrics) IncScanQuery(status string) {
	if m == nil {
		return
	}
	m.scanQueries.WithLabelValues(status).Inc()
}

func (m *Metrics) IncLogMatched(topic string) {
	if m == nil {
		return
	}
	m.logsMatched.WithLabelValues(topic).Inc()
}

func (m *Metrics) IncConfirmationPass(event string) {
	if m == nil {
		return
	}
	m.confirmationPasses.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveFlow(flow, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.flows.WithLabelValues(flow, status).Inc()
	m.flowDuration.WithLabelValues(flow).Observe(took.Seconds())
}
