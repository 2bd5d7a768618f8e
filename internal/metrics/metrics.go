// Package metrics exposes prometheus collectors for ban panel rendering and
// ban actions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mship"

// Metrics owns a private registry so tests can build as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	viewsPresented  prometheus.Counter
	actionsOffered  *prometheus.CounterVec
	presentErrors   *prometheus.CounterVec
	presentDuration prometheus.Histogram
	banActions      *prometheus.CounterVec
	gatewayConns    prometheus.Gauge
}

// New creates the collectors and registers them with the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		viewsPresented: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ban_views_presented_total",
			Help:      "Ban panels rendered.",
		}),
		actionsOffered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ban_actions_offered_total",
			Help:      "Actions offered on rendered ban panels, by kind.",
		}, []string{"kind"}),
		presentErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ban_present_errors_total",
			Help:      "Ban panels that could not be rendered, by reason.",
		}, []string{"reason"}),
		presentDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ban_present_duration_seconds",
			Help:      "Time spent rendering one ban panel.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01},
		}),
		banActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ban_actions_total",
			Help:      "Ban actions executed, by action and outcome.",
		}, []string{"action", "outcome"}),
		gatewayConns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_connections",
			Help:      "Open gateway websocket connections.",
		}),
	}

	m.registry.MustRegister(
		m.viewsPresented,
		m.actionsOffered,
		m.presentErrors,
		m.presentDuration,
		m.banActions,
		m.gatewayConns,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObservePresented records one rendered panel and the actions it offered.
func (m *Metrics) ObservePresented(d time.Duration, offered []string) {
	m.viewsPresented.Inc()
	m.presentDuration.Observe(d.Seconds())
	for _, kind := range offered {
		m.actionsOffered.WithLabelValues(kind).Inc()
	}
}

// ObservePresentError records a panel that failed to render.
func (m *Metrics) ObservePresentError(reason string) {
	m.presentErrors.WithLabelValues(reason).Inc()
}

// ObserveAction records the outcome of a repeal, modify or note action.
func (m *Metrics) ObserveAction(action, outcome string) {
	m.banActions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) GatewayConnected()    { m.gatewayConns.Inc() }
func (m *Metrics) GatewayDisconnected() { m.gatewayConns.Dec() }
