package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PendingValidations tracks entries currently in the pending-validation table.
	PendingValidations = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "pending",
			Help:      "Number of pairs currently awaiting PSK validation",
		},
	)

	// ValidationSweeps counts sweeper runs; ValidationTimeouts counts the entries they expire.
	ValidationSweeps = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "sweeps_total",
			Help:      "Total number of timeout-sweeper passes",
		},
	)

	// ValidationTimeouts counts pending entries purged by the sweeper for exceeding the deadline.
	ValidationTimeouts = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "timeouts_total",
			Help:      "Total number of pending validations purged for exceeding the deadline",
		},
	)

	// InviteTokensExpired counts invite tokens purged by the sweeper.
	InviteTokensExpired = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "invite_tokens_expired_total",
			Help:      "Total number of invite tokens purged for exceeding their expiry",
		},
	)
)
