// SPDX-License-Identifier: LGPL-3.0-or-later

package registry

import (
	"time"

	"github.com/oldiegoldie/chatrelay/internal/logger"
	"github.com/oldiegoldie/chatrelay/internal/metrics"
)

// Invite is one entry of the invites table: a token optionally bound to
// a specific username, with an optional expiry.
type Invite struct {
	Token         string
	BoundUsername string // empty means unbound
	Expiry        *time.Time
}

// AddInvite registers a new invite token. expiry may be nil to disable
// its TTL (the --no-expiry server flag).
func (h *Hub) AddInvite(token, boundUsername string, expiry *time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.invites[token] = &Invite{Token: token, BoundUsername: boundUsername, Expiry: expiry}
}

// CheckInvite returns the invite for token if it exists and has not
// expired. It does not consume the token; call ConsumeInvite after a
// successful registration.
func (h *Hub) CheckInvite(token string) (*Invite, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	inv, ok := h.invites[token]
	if !ok {
		return nil, false
	}
	if inv.Expiry != nil && time.Now().After(*inv.Expiry) {
		return nil, false
	}
	return inv, true
}

// ConsumeInvite deletes token, making it single-use.
func (h *Hub) ConsumeInvite(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.invites, token)
}

// sweepInvites purges expired invite tokens, run by the same sweeper
// task that times out pending validations (spec.md §4.2).
func (h *Hub) sweepInvites() {
	h.mu.Lock()
	now := time.Now()
	var expired int
	for token, inv := range h.invites {
		if inv.Expiry != nil && now.After(*inv.Expiry) {
			delete(h.invites, token)
			expired++
		}
	}
	h.mu.Unlock()

	if expired > 0 {
		metrics.InviteTokensExpired.Add(float64(expired))
		h.log.Info("invite tokens expired", logger.Int("count", expired))
	}
}
