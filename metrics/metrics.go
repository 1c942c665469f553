// Package metrics holds the prometheus collectors of the delivery pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "social_rpc"

type Metrics struct {
	MessagesSent       prometheus.Counter
	MessagesReceived   prometheus.Counter
	QueueSize          prometheus.Histogram
	DeliveryFailures   *prometheus.CounterVec
	BackpressureEvents prometheus.Counter
	SendRetries        prometheus.Counter
	BufferedBytes      prometheus.Histogram

	Connections        prometheus.Gauge
	ConnectionDuration prometheus.Histogram
	AuthErrors         *prometheus.CounterVec
	DroppedInbound     prometheus.Counter

	ProtocolErrors prometheus.Counter
	RPCCalls       *prometheus.CounterVec
	ActiveStreams  prometheus.Gauge
	StreamUpdates  *prometheus.CounterVec

	BusMessages *prometheus.CounterVec
	Subscribers prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound messages handed to the socket.",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound messages read from sockets.",
		}),
		QueueSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_queue_size",
			Help:      "Delivery queue length observed on every send.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 500, 1000},
		}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_failures_total",
			Help:      "Outbound messages whose completion was rejected.",
		}, []string{"reason"}),
		BackpressureEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backpressure_events_total",
			Help:      "Sends the socket dropped because of backpressure.",
		}),
		SendRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_retries_total",
			Help:      "Backoff retries scheduled by delivery queues.",
		}),
		BufferedBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "socket_buffered_bytes",
			Help:      "Socket buffered amount observed on drain.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections",
			Help:      "Open websocket connections.",
		}),
		ConnectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_duration_seconds",
			Help:      "Lifetime of closed connections.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		AuthErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_errors_total",
			Help:      "Failed authentication handshakes.",
		}, []string{"reason"}),
		DroppedInbound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_inbound_messages_total",
			Help:      "Inbound messages dropped because the connection was closing.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "protocol_errors_total",
			Help:      "Malformed or unknown inbound frames.",
		}),
		RPCCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_calls_total",
			Help:      "RPC calls and stream openings by method.",
		}, []string{"method", "outcome"}),
		ActiveStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_streams",
			Help:      "Streams currently open.",
		}),
		StreamUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_updates_total",
			Help:      "Updates delivered per stream method.",
		}, []string{"method"}),
		BusMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bus_messages_total",
			Help:      "Messages received from the pub/sub bus.",
		}, []string{"channel", "outcome"}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Entries in the subscriber registry.",
		}),
	}

	reg.MustRegister(
		m.MessagesSent,
		m.MessagesReceived,
		m.QueueSize,
		m.DeliveryFailures,
		m.BackpressureEvents,
		m.SendRetries,
		m.BufferedBytes,
		m.Connections,
		m.ConnectionDuration,
		m.AuthErrors,
		m.DroppedInbound,
		m.ProtocolErrors,
		m.RPCCalls,
		m.ActiveStreams,
		m.StreamUpdates,
		m.BusMessages,
		m.Subscribers,
	)

	return m
}

// NewUnregistered returns collectors that are not exported anywhere.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
