// SPDX-License-Identifier: LGPL-3.0-or-later

// Package relay wires internal/transport/ws, registry.Hub, and the
// handshake package into the per-connection lifecycle: accept,
// register, dispatch until the connection dies, disconnect.
package relay

import (
	"context"
	"time"

	"github.com/oldiegoldie/chatrelay/handshake"
	"github.com/oldiegoldie/chatrelay/internal/logger"
	"github.com/oldiegoldie/chatrelay/internal/transport/ws"
	"github.com/oldiegoldie/chatrelay/registry"
)

// Server owns the shared Hub and the registration timeout applied to
// every new connection.
type Server struct {
	Hub                 *registry.Hub
	RegistrationTimeout time.Duration
}

// NewServer builds a Server around hub with the spec's default
// registration timeout (handshake.RegistrationTimeout).
func NewServer(hub *registry.Hub) *Server {
	return &Server{
		Hub:                 hub,
		RegistrationTimeout: handshake.RegistrationTimeout,
	}
}

// HandleConnection drives one accepted connection end to end: it
// blocks registering the caller, then relays dispatched envelopes
// until the read loop ends, and always disconnects on the way out.
// Intended to be run on its own goroutine per connection (by
// ws.Handler.OnConnect).
func (s *Server) HandleConnection(conn *ws.Conn, invite *registry.Invite) {
	defer conn.Close()

	regCtx, cancel := context.WithTimeout(context.Background(), s.RegistrationTimeout)
	username, err := handshake.Register(regCtx, conn, conn, s.Hub, invite)
	cancel()
	if err != nil {
		logger.Warn("registration failed, dropping connection",
			logger.String("conn_id", conn.ID()), logger.Error(err))
		return
	}

	logger.Info("user registered", logger.String("username", username), logger.String("conn_id", conn.ID()))
	defer handshake.Disconnect(s.Hub, conn)

	s.readLoop(conn, username)
}

// readLoop reads envelopes until the connection errors out or the
// caller disconnects, handing each one to handshake.Dispatch. The
// context carries no deadline, so conn's default read timeout applies:
// a client that sends nothing for that long ends the loop.
func (s *Server) readLoop(conn *ws.Conn, username string) {
	ctx := context.Background()
	for {
		env, err := conn.ReadEnvelope(ctx)
		if err != nil {
			logger.Debug("connection read loop ended",
				logger.String("username", username), logger.Error(err))
			return
		}
		handshake.Dispatch(s.Hub, username, conn, env)
	}
}
