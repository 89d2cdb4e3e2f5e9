package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TunnelsActive tracks currently active (post-PSK-match) tunnel pairs.
	TunnelsActive = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tunnels",
			Name:      "active",
			Help:      "Number of currently active tunnel pairs",
		},
	)

	// TunnelsEstablished counts tunnels that completed the PSK handshake, by outcome.
	TunnelsEstablished = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tunnels",
			Name:      "established_total",
			Help:      "Total number of PSK handshakes resolved, by outcome",
		},
		[]string{"outcome"}, // matched, mismatched, timeout
	)

	// CryptoOperations tracks session-key derivation and AEAD seal/open calls.
	CryptoOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tunnels",
			Name:      "crypto_operations_total",
			Help:      "Total number of cryptographic operations performed by tunnels",
		},
		[]string{"operation"}, // keygen, ecdh, derive, seal, open
	)

	// CryptoErrors tracks crypto failures, notably AEAD authentication failures.
	CryptoErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tunnels",
			Name:      "crypto_errors_total",
			Help:      "Total number of cryptographic operation failures",
		},
		[]string{"operation"},
	)
)
