// Package wsmetrics exposes the server's prometheus collectors: connection
// counts, per-opcode frame counts, handshake rejections by dialect, and the
// number of open mux channels.
package wsmetrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles every metric wsserver touches. The zero value is not
// usable; build one with New and register it with a prometheus.Registerer.
type Collectors struct {
	ConnectionsOpen   prometheus.Gauge
	ConnectionsTotal  prometheus.Counter
	FramesTotal       *prometheus.CounterVec
	HandshakeRejected *prometheus.CounterVec
	MuxChannelsOpen   prometheus.Gauge
}

// New builds a Collectors instance. Callers register it with
// reg.MustRegister(c.ConnectionsOpen, ...) or use MustRegisterAll.
func New() *Collectors {
	return &Collectors{
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wsengine",
			Name:      "connections_open",
			Help:      "Number of currently established WebSocket connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wsengine",
			Name:      "connections_total",
			Help:      "Total number of WebSocket connections accepted.",
		}),
		FramesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsengine",
			Name:      "frames_total",
			Help:      "Total number of frames processed, by dialect and opcode.",
		}, []string{"dialect", "opcode"}),
		HandshakeRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsengine",
			Name:      "handshake_rejected_total",
			Help:      "Total number of rejected handshakes, by dialect label.",
		}, []string{"dialect"}),
		MuxChannelsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wsengine",
			Name:      "mux_channels_open",
			Help:      "Number of currently open logical mux channels, summed across connections.",
		}),
	}
}

// MustRegisterAll registers every collector with reg.
func (c *Collectors) MustRegisterAll(reg prometheus.Registerer) {
	reg.MustRegister(c.ConnectionsOpen, c.ConnectionsTotal, c.FramesTotal, c.HandshakeRejected, c.MuxChannelsOpen)
}
