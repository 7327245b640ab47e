// Package metrics exposes Prometheus instrumentation for the IPC engine.
// Collectors register on the default registry; embedding applications
// serve them with promhttp wherever they already expose metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discord_rpc_frames_sent_total",
			Help: "Frames written to the Discord IPC pipe",
		},
		[]string{"opcode"},
	)

	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discord_rpc_frames_received_total",
			Help: "Frames read from the Discord IPC pipe",
		},
		[]string{"opcode"},
	)

	connects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "discord_rpc_connects_total",
			Help: "Successful pipe connections",
		},
	)

	reconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "discord_rpc_reconnects_total",
			Help: "Connection recycles after a transport or protocol failure",
		},
	)

	pings = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "discord_rpc_pings_total",
			Help: "Keep-alive pings sent",
		},
	)

	queueDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discord_rpc_queue_dropped_total",
			Help: "Messages discarded because a bounded queue was full",
		},
		[]string{"queue"},
	)
)

func init() {
	prometheus.MustRegister(framesSent, framesReceived, connects, reconnects, pings, queueDropped)
}

func FrameSent(opcode string)     { framesSent.WithLabelValues(opcode).Inc() }
func FrameReceived(opcode string) { framesReceived.WithLabelValues(opcode).Inc() }
func Connect()                    { connects.Inc() }
func Reconnect()                  { reconnects.Inc() }
func Ping()                       { pings.Inc() }
func QueueDropped(queue string)   { queueDropped.WithLabelValues(queue).Inc() }
