package bridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of a bridge.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessionsTotal   prometheus.Counter
	sessionsActive  prometheus.Gauge
	messagesTotal   *prometheus.CounterVec
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// NewMetrics creates the bridge collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "captainhook_bridge_sessions_total",
			Help: "Total client connections accepted by the bridge",
		}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "captainhook_bridge_sessions_active",
			Help: "Client connections currently open",
		}),
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "captainhook_bridge_messages_total",
			Help: "Complete messages received, by outcome",
		}, []string{"outcome"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "captainhook_bridge_commands_total",
			Help: "Commands dispatched, by command and outcome",
		}, []string{"command", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "captainhook_bridge_command_duration_seconds",
			Help: "Handler durations",
		}, []string{"command"}),
	}
	reg.MustRegister(m.sessionsTotal, m.sessionsActive, m.messagesTotal, m.commandsTotal, m.commandDuration)
	return m
}

func (m *Metrics) sessionOpened() {
	if m == nil {
		return
	}
	m.sessionsTotal.Inc()
	m.sessionsActive.Inc()
}

func (m *Metrics) sessionClosed() {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
}

func (m *Metrics) message(outcome string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) command(name, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if outcome == outcomeUnregistered {
		// names of unregistered commands come from the peer, so they share one label value
		m.commandsTotal.WithLabelValues(unregisteredCommand, outcome).Inc()
		return
	}
	m.commandsTotal.WithLabelValues(name, outcome).Inc()
	m.commandDuration.WithLabelValues(name).Observe(d.Seconds())
}

// unregisteredCommand is the command label of every command without a handler.
const unregisteredCommand = "_unregistered"

const (
	outcomeOK           = "ok"
	outcomeMalformed    = "malformed"
	outcomeError        = "error"
	outcomeUnregistered = "unregistered"
)
