package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesRelayed tracks envelopes processed by the hub's dispatcher.
	MessagesRelayed = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Total number of envelopes dispatched by type and outcome",
		},
		[]string{"type", "outcome"}, // e.g. encrypted_message/ok, connect_request/error
	)

	// MalformedMessages counts frames that failed to parse as JSON.
	MalformedMessages = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "malformed_messages_total",
			Help:      "Total number of frames coerced into a synthetic system_message",
		},
	)

	// ConnectionsActive tracks live WebSocket connections, registered or not.
	ConnectionsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "connections_active",
			Help:      "Number of currently open WebSocket connections",
		},
	)

	// MessageProcessingDuration tracks per-envelope dispatch latency.
	MessageProcessingDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "processing_duration_seconds",
			Help:      "Envelope dispatch duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		},
	)
)
