package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "unii2mqtt"

// Metrics bundles the bridge's Prometheus collectors on a private
// registry. A nil *Metrics is valid and turns every method into a
// no-op, so instrumentation points never need guarding.
type Metrics struct {
	registry *prometheus.Registry

	framesTx    prometheus.Counter
	framesRx    prometheus.Counter
	frameErrors prometheus.Counter
	events      prometheus.Counter
	commands    *prometheus.CounterVec
	reconnects  prometheus.Counter
	connected   prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		framesTx: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_tx_total",
			Help:      "Frames written to the panel connection",
		}),
		framesRx: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_rx_total",
			Help:      "Frames read from the panel connection",
		}),
		frameErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frame_errors_total",
			Help:      "Malformed or rejected frames",
		}),
		events: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Unsolicited panel events interpreted",
		}),
		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Panel commands issued, by operation and outcome",
		}, []string{"command", "result"}),
		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnects_total",
			Help:      "Panel connection attempts after the first",
		}),
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "panel_connected",
			Help:      "Whether a panel session is currently established",
		}),
	}
}

func (m *Metrics) IncFramesTx() {
	if m == nil {
		return
	}
	m.framesTx.Inc()
}

func (m *Metrics) IncFramesRx() {
	if m == nil {
		return
	}
	m.framesRx.Inc()
}

func (m *Metrics) IncFrameErrors() {
	if m == nil {
		return
	}
	m.frameErrors.Inc()
}

func (m *Metrics) IncEvents() {
	if m == nil {
		return
	}
	m.events.Inc()
}

func (m *Metrics) IncCommand(command, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, result).Inc()
}

func (m *Metrics) IncReconnects() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
