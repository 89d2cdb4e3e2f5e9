// SPDX-License-Identifier: LGPL-3.0-or-later

package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/oldiegoldie/chatrelay/internal/logger"
	"github.com/oldiegoldie/chatrelay/internal/metrics"
	"github.com/oldiegoldie/chatrelay/registry"
)

// Authorizer checks the inbound HTTP request's Authorization header
// against invite-token mode (spec.md §6) before the WebSocket upgrade
// runs. ok=false rejects with 401. invite is the matched invite, bound
// or unbound; when Handler.Authorize is nil (invite-token mode disabled)
// OnConnect receives a nil invite.
type Authorizer func(r *http.Request) (invite *registry.Invite, ok bool)

// ConnectHandler is invoked once per accepted connection, on its own
// goroutine, with the invite (if any) that authorized it.
type ConnectHandler func(conn *Conn, invite *registry.Invite)

// Handler upgrades HTTP requests to WebSocket connections and hands
// each one to OnConnect, adapted from the teacher's WSServer pattern
// but without the SecureMessage RPC framing: the chat relay speaks bare
// JSON envelopes (internal/protocol), not request/response pairs.
type Handler struct {
	upgrader  websocket.Upgrader
	Authorize Authorizer
	OnConnect ConnectHandler
}

// NewHandler creates a Handler with permissive CORS (the relay has no
// browser-origin concept) and generous buffer sizes for chat-sized
// frames.
func NewHandler() *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var invite *registry.Invite
	if h.Authorize != nil {
		inv, ok := h.Authorize(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		invite = inv
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", logger.Error(err))
		return
	}

	id := uuid.NewString()
	conn := newConn(id, wsConn)
	metrics.ConnectionsActive.Inc()
	logger.Info("connection accepted", logger.String("conn_id", id))

	if h.OnConnect != nil {
		go h.OnConnect(conn, invite)
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header, or the bare header value if no scheme prefix is present.
func BearerToken(r *http.Request) string {
	const prefix = "Bearer "
	v := r.Header.Get("Authorization")
	if len(v) > len(prefix) && v[:len(prefix)] == prefix {
		return v[len(prefix):]
	}
	return v
}
