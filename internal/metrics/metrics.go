// Package metrics defines the relay's Prometheus instruments.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "streamrelay"

// Drop reasons for EventsDropped.
const (
	ReasonMalformed  = "malformed"
	ReasonMissingKey = "missing_key"
)

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// RelayMetrics holds the instruments shared by the dispatcher and the
// websocket hub.
type RelayMetrics struct {
	EventsReceived    prometheus.Counter
	EventsDropped     *prometheus.CounterVec
	Deliveries        prometheus.Counter
	DispatchDuration  prometheus.Histogram
	ActiveConnections prometheus.Gauge
	Subscriptions     prometheus.Gauge
	SubscribeErrors   prometheus.Counter
	FramesDropped     prometheus.Counter
}

// NewRelayMetrics creates and registers relay metrics on the given registry.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		EventsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "events_received_total",
			Help:      "Total number of inbound payloads handed to the dispatcher.",
		}),
		EventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "events_dropped_total",
			Help:      "Total number of inbound payloads dropped before dispatch.",
		}, []string{"reason"}),
		Deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "deliveries_total",
			Help:      "Total number of events pushed to subscriber connections.",
		}),
		DispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatch",
			Name:      "duration_seconds",
			Help:      "Time spent matching one event against all connections.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active websocket connections.",
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "subscriptions",
			Help:      "Number of patterns held across all connections.",
		}),
		SubscribeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registry",
			Name:      "subscribe_errors_total",
			Help:      "Total number of subscribe batches rejected at the pattern cap.",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "frames_dropped_total",
			Help:      "Total number of outbound frames dropped because a send queue was full.",
		}),
	}

	reg.MustRegister(
		m.EventsReceived,
		m.EventsDropped,
		m.Deliveries,
		m.DispatchDuration,
		m.ActiveConnections,
		m.Subscriptions,
		m.SubscribeErrors,
		m.FramesDropped,
	)
	return m
}

// NewUnregistered returns relay metrics bound to a private registry. Useful
// for tests and for components constructed without a metrics endpoint.
func NewUnregistered() *RelayMetrics {
	return NewRelayMetrics(prometheus.NewRegistry())
}
