package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistrationsTotal tracks completed registration attempts.
	RegistrationsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "registrations",
			Name:      "total",
			Help:      "Total number of registration attempts by outcome",
		},
		[]string{"outcome"}, // success, taken, blocked, invalid, wrong_token, timeout
	)

	// UsersRegistered tracks currently registered connections.
	UsersRegistered = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registrations",
			Name:      "active_users",
			Help:      "Number of currently registered usernames",
		},
	)

	// UsersBlocked tracks the monotonically growing blocked set's size.
	UsersBlocked = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "registrations",
			Name:      "blocked_users",
			Help:      "Number of usernames in the blocked set",
		},
	)

	// RegistrationDuration tracks time from connection open to registration outcome.
	RegistrationDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "registrations",
			Name:      "duration_seconds",
			Help:      "Time spent in the registration handshake",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
	)
)
