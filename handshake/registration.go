// SPDX-License-Identifier: LGPL-3.0-or-later

package handshake

import (
	"context"
	"fmt"
	"time"

	"github.com/oldiegoldie/chatrelay/internal/metrics"
	"github.com/oldiegoldie/chatrelay/internal/protocol"
	"github.com/oldiegoldie/chatrelay/registry"
)

// RegistrationTimeout and MaxAttempts are spec.md §4.3's bounds on the
// registration handshake.
const (
	RegistrationTimeout = 10 * time.Second
	MaxAttempts         = 4
)

// Reader is the minimal read surface Register needs: block until the
// next envelope arrives, or ctx is cancelled / the stream ends.
type Reader interface {
	ReadEnvelope(ctx context.Context) (protocol.Envelope, error)
}

// Register drives one freshly connected client through the
// registration handshake. boundInvite is the invite already validated
// at the HTTP layer (nil when invite-token mode is off; an unbound
// invite has an empty BoundUsername). A non-nil invite is consumed on
// successful registration. On success it returns the
// registered username; on failure the connection should be closed by
// the caller.
func Register(ctx context.Context, r Reader, conn registry.Conn, hub *registry.Hub, boundInvite *registry.Invite) (string, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, RegistrationTimeout)
	defer cancel()

	attempts := 0
	for {
		env, err := r.ReadEnvelope(ctx)
		if err != nil {
			_ = conn.Send(registerError("timeout", "registration window expired"))
			metrics.RegistrationsTotal.WithLabelValues("timeout").Inc()
			return "", fmt.Errorf("handshake: registration timed out or connection closed: %w", err)
		}

		if env.Type != protocol.TypeRegister || env.Username == "" {
			attempts++
			_ = conn.Send(registerError("invalid_envelope", "expected a register message with a username"))
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			if attempts >= MaxAttempts {
				return "", fmt.Errorf("handshake: max registration attempts exceeded")
			}
			continue
		}

		if !protocol.ValidUsername(env.Username) {
			attempts++
			_ = conn.Send(registerError("invalid_username", "username fails the format check"))
			metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
			if attempts >= MaxAttempts {
				return "", fmt.Errorf("handshake: max registration attempts exceeded")
			}
			continue
		}

		if hub.IsBlocked(env.Username) {
			_ = conn.Send(registerError("blocked", "username is blocked"))
			metrics.RegistrationsTotal.WithLabelValues("blocked").Inc()
			continue
		}

		if boundInvite != nil && boundInvite.BoundUsername != "" && boundInvite.BoundUsername != env.Username {
			_ = conn.Send(registerError("wrong_token", "invite token is bound to a different username"))
			metrics.RegistrationsTotal.WithLabelValues("wrong_token").Inc()
			continue
		}

		outcome := hub.Register(env.Username, conn)
		switch outcome {
		case registry.RegisterSuccess:
			if boundInvite != nil {
				hub.ConsumeInvite(boundInvite.Token)
			}
			_ = conn.Send(registerOK(env.Username))
			metrics.RegistrationDuration.Observe(time.Since(start).Seconds())
			return env.Username, nil
		case registry.RegisterTaken:
			_ = conn.Send(registerError("taken", "username already taken"))
			metrics.RegistrationsTotal.WithLabelValues("taken").Inc()
		case registry.RegisterBlocked:
			_ = conn.Send(registerError("blocked", "username is blocked"))
			metrics.RegistrationsTotal.WithLabelValues("blocked").Inc()
		}
	}
}
