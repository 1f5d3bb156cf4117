// Package metrics exposes the Prometheus collectors of the tracking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "canvasthink"

type Metrics struct {
	Registry *prometheus.Registry

	Interactions    *prometheus.CounterVec
	EmotionalStates *prometheus.CounterVec
	Adaptations     *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	DroppedFrames   prometheus.Counter
	RelayDropped    prometheus.Counter
	QueueDropped    *prometheus.CounterVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		Interactions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interactions_total",
			Help:      "Recorded behavioral interactions by kind.",
		}, []string{"kind"}),
		EmotionalStates: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emotional_states_total",
			Help:      "Emotional state samples by label.",
		}, []string{"state"}),
		Adaptations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adaptations_total",
			Help:      "Adaptations emitted by label.",
		}, []string{"state"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Tracking sessions currently held in memory.",
		}),
		DroppedFrames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_dropped_frames_total",
			Help:      "Websocket frames dropped because a client buffer was full.",
		}),
		RelayDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_relay_dropped_total",
			Help:      "Frames not relayed to other instances because the relay buffer was full.",
		}),
		QueueDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queue_dropped_total",
			Help:      "Outbound messages dropped because the queue buffer was full.",
		}, []string{"topic"}),
	}
}
