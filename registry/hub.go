// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package registry owns the process-wide mutable state of the chat
// relay: the username<->connection registry, the blocked set, the
// pending PSK-validation table, the active-tunnel set, and the
// invite-token table. All five live behind a single Hub guarded by one
// mutex, so routing decisions ("is target registered", "is pair
// tunneled") are taken as a consistent snapshot.
package registry

import (
	"sync"
	"time"

	"github.com/oldiegoldie/chatrelay/internal/logger"
	"github.com/oldiegoldie/chatrelay/internal/metrics"
	"github.com/oldiegoldie/chatrelay/internal/protocol"
)

// Conn is the minimal connection surface the Hub needs: something it
// can hand an envelope to and something it can close. Concrete
// transports (internal/transport/ws) implement this.
type Conn interface {
	Send(env protocol.Envelope) error
	Close() error
}

// Hub holds the five shared tables described by the data model and
// serializes every mutation behind mu, following the mutex-guarded-map
// pattern of the session manager this package is adapted from.
type Hub struct {
	mu sync.RWMutex

	byUser map[string]Conn
	byConn map[Conn]string

	blocked map[string]struct{}

	pending map[pairKey]*PendingEntry

	tunnels  map[pairKey]struct{}
	partners map[string]string // username -> tunneled partner

	invites map[string]*Invite

	log        logger.Logger
	validation time.Duration
	onTimeout  func(requester, responder string)

	sweepTicker *time.Ticker
	stopSweep   chan struct{}
	stopOnce    sync.Once
}

// Config controls the Hub's timeouts.
type Config struct {
	ValidationTimeout time.Duration
	SweepInterval     time.Duration
}

// DefaultConfig matches spec.md's VALIDATION_TIMEOUT=10s and ~1 Hz sweep.
func DefaultConfig() Config {
	return Config{
		ValidationTimeout: 10 * time.Second,
		SweepInterval:     time.Second,
	}
}

// NewHub creates a Hub and starts its background sweeper goroutine.
func NewHub(cfg Config) *Hub {
	if cfg.ValidationTimeout == 0 {
		cfg.ValidationTimeout = 10 * time.Second
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = time.Second
	}

	h := &Hub{
		byUser:      make(map[string]Conn),
		byConn:      make(map[Conn]string),
		blocked:     make(map[string]struct{}),
		pending:     make(map[pairKey]*PendingEntry),
		tunnels:     make(map[pairKey]struct{}),
		partners:    make(map[string]string),
		invites:     make(map[string]*Invite),
		log:         logger.GetDefaultLogger(),
		validation:  cfg.ValidationTimeout,
		sweepTicker: time.NewTicker(cfg.SweepInterval),
		stopSweep:   make(chan struct{}),
	}
	go h.runSweeper()
	return h
}

// SetLogger overrides the Hub's logger (used by cmd/chat-server wiring).
func (h *Hub) SetLogger(l logger.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.log = l
}

// OnValidationTimeout registers the callback invoked for each pending
// entry the sweeper expires, one call per (requester, responder) pair.
// Wired by cmd/chat-server to handshake's disconnect-and-block policy,
// keeping registry free of a dependency on handshake.
func (h *Hub) OnValidationTimeout(fn func(requester, responder string)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onTimeout = fn
}

// Close stops the sweeper goroutine. Idempotent.
func (h *Hub) Close() {
	h.stopOnce.Do(func() {
		h.sweepTicker.Stop()
		close(h.stopSweep)
	})
}

func (h *Hub) runSweeper() {
	for {
		select {
		case <-h.sweepTicker.C:
			expired := h.sweepPending()
			h.sweepInvites()

			h.mu.RLock()
			fn := h.onTimeout
			h.mu.RUnlock()
			if fn != nil {
				for _, entry := range expired {
					fn(entry.Requester, entry.Responder)
				}
			}
		case <-h.stopSweep:
			return
		}
	}
}

// Reachable reports whether the Hub can still be locked within a short
// deadline; used by the /healthz liveness check.
func (h *Hub) Reachable() bool {
	done := make(chan struct{})
	go func() {
		h.mu.RLock()
		h.mu.RUnlock()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

// --- registry -----------------------------------------------------------

// RegisterOutcome enumerates why Register succeeded or failed, matching
// the registrations_total{outcome} metric label set.
type RegisterOutcome string

const (
	RegisterSuccess    RegisterOutcome = "success"
	RegisterTaken      RegisterOutcome = "taken"
	RegisterBlocked    RegisterOutcome = "blocked"
	RegisterWrongToken RegisterOutcome = "wrong_token"
)

// Register inserts username into the registry bound to conn. It never
// overwrites an existing entry: a blocked username yields RegisterBlocked
// and a registered one RegisterTaken, so the caller can report the exact
// reason (spec.md §4.3 distinguishes "taken" from "blocked" for messaging).
func (h *Hub) Register(username string, conn Conn) RegisterOutcome {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, blocked := h.blocked[username]; blocked {
		return RegisterBlocked
	}
	if _, taken := h.byUser[username]; taken {
		return RegisterTaken
	}

	h.byUser[username] = conn
	h.byConn[conn] = username
	metrics.UsersRegistered.Set(float64(len(h.byUser)))
	metrics.RegistrationsTotal.WithLabelValues(string(RegisterSuccess)).Inc()
	h.log.Info("user registered", logger.String("username", username))
	return RegisterSuccess
}

// IsRegistered reports whether username currently has a connection.
func (h *Hub) IsRegistered(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.byUser[username]
	return ok
}

// IsBlocked reports whether username is in the blocked set.
func (h *Hub) IsBlocked(username string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.blocked[username]
	return ok
}

// Lookup returns the connection registered for username, if any.
func (h *Hub) Lookup(username string) (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.byUser[username]
	return c, ok
}

// ListUsernames returns every currently registered username, for
// system_request{need: list_users}.
func (h *Hub) ListUsernames() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.byUser))
	for u := range h.byUser {
		out = append(out, u)
	}
	return out
}

// ListNonTunneled returns every registered connection whose username is
// not currently part of a tunnel, for chat_message fan-out and
// user_disconnected broadcast (spec.md §4.2).
func (h *Hub) ListNonTunneled(except string) map[string]Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]Conn)
	for u, c := range h.byUser {
		if u == except {
			continue
		}
		if _, tunneled := h.partners[u]; tunneled {
			continue
		}
		out[u] = c
	}
	return out
}

// Block adds usernames to the blocked set. Monotonic: never removed.
func (h *Hub) Block(usernames ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, u := range usernames {
		h.blocked[u] = struct{}{}
	}
	metrics.UsersBlocked.Set(float64(len(h.blocked)))
}

// Unregister removes username from the registry and, if it was
// tunneled, removes its tunnel pair too. Returns the tunnel partner's
// username, if any, so the caller can notify it.
func (h *Hub) Unregister(conn Conn) (username string, partner string, wasTunneled bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	username, ok := h.byConn[conn]
	if !ok {
		return "", "", false
	}
	delete(h.byConn, conn)
	delete(h.byUser, username)
	metrics.UsersRegistered.Set(float64(len(h.byUser)))

	if p, tunneled := h.partners[username]; tunneled {
		h.removeTunnelLocked(username, p)
		return username, p, true
	}
	return username, "", false
}
