// SPDX-License-Identifier: LGPL-3.0-or-later

// Package ws implements the chat relay's WebSocket transport: one
// read-loop/write-loop pair per connection, a bounded outbound channel
// for back-pressure, and JSON text frames carrying protocol envelopes.
package ws

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oldiegoldie/chatrelay/internal/logger"
	"github.com/oldiegoldie/chatrelay/internal/metrics"
	"github.com/oldiegoldie/chatrelay/internal/protocol"
)

// DefaultOutboundBuffer bounds the per-connection send channel; a
// recipient slower than this gets dropped rather than stalling the
// whole relay (spec.md §5, "Back-pressure").
const DefaultOutboundBuffer = 64

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 10 * time.Second
)

// Conn wraps a gorilla/websocket connection with a dedicated writer
// goroutine draining a bounded outbound channel, implementing
// registry.Conn and handshake.Reader without either package depending
// on gorilla/websocket directly.
type Conn struct {
	id  string
	ws  *websocket.Conn
	out chan protocol.Envelope

	readTimeout  time.Duration
	writeTimeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

func newConn(id string, wsConn *websocket.Conn) *Conn {
	c := &Conn{
		id:           id,
		ws:           wsConn,
		out:          make(chan protocol.Envelope, DefaultOutboundBuffer),
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		done:         make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// ID returns the connection's correlation identifier (for logging).
func (c *Conn) ID() string {
	return c.id
}

// Send enqueues env for delivery on the writer goroutine. A full buffer
// is treated as an unrecoverable slow-consumer condition: the
// connection is dropped rather than blocking the caller (spec.md §5).
func (c *Conn) Send(env protocol.Envelope) error {
	select {
	case <-c.done:
		return fmt.Errorf("ws: connection %s is closed", c.id)
	default:
	}

	select {
	case c.out <- env:
		return nil
	case <-c.done:
		return fmt.Errorf("ws: connection %s is closed", c.id)
	default:
		logger.Warn("outbound buffer exceeded, dropping connection", logger.String("conn_id", c.id))
		_ = c.Close()
		return fmt.Errorf("ws: connection %s outbound buffer exceeded", c.id)
	}
}

// ReadEnvelope blocks for the next text frame, applying ctx's deadline
// (if any) or the connection's default read timeout otherwise.
func (c *Conn) ReadEnvelope(ctx context.Context) (protocol.Envelope, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.ws.SetReadDeadline(deadline)
	} else {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	}

	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		return protocol.Envelope{}, err
	}
	return protocol.Decode(raw), nil
}

func (c *Conn) writeLoop() {
	for {
		select {
		case env := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			b, err := protocol.Encode(env)
			if err != nil {
				logger.Warn("failed to encode outbound envelope", logger.Error(err))
				continue
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close stops the writer goroutine and closes the underlying socket.
// Idempotent and safe to call from any goroutine.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		metrics.ConnectionsActive.Dec()
		_ = c.ws.Close()
	})
	return nil
}
