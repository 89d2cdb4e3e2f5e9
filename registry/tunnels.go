// SPDX-License-Identifier: LGPL-3.0-or-later

package registry

import "github.com/oldiegoldie/chatrelay/internal/metrics"

// establishTunnelLocked inserts the pair (a, b) into tunnels. Caller must hold h.mu.
func (h *Hub) establishTunnelLocked(a, b string) {
	h.tunnels[makePairKey(a, b)] = struct{}{}
	h.partners[a] = b
	h.partners[b] = a
	metrics.TunnelsActive.Set(float64(len(h.tunnels)))
}

// removeTunnelLocked removes the tunnel pair containing a (and its
// partner b). Caller must hold h.mu.
func (h *Hub) removeTunnelLocked(a, b string) {
	delete(h.tunnels, makePairKey(a, b))
	delete(h.partners, a)
	delete(h.partners, b)
	metrics.TunnelsActive.Set(float64(len(h.tunnels)))
}

// IsTunneled reports whether (a, b) is currently an active tunnel pair.
func (h *Hub) IsTunneled(a, b string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.tunnels[makePairKey(a, b)]
	return ok
}

// PartnerOf returns username's current tunnel partner, if any.
func (h *Hub) PartnerOf(username string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.partners[username]
	return p, ok
}

// RemoveTunnel tears down the tunnel pair containing username, as on
// tunnel_exit. Returns the partner's username, if there was one.
func (h *Hub) RemoveTunnel(username string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	partner, ok := h.partners[username]
	if !ok {
		return "", false
	}
	h.removeTunnelLocked(username, partner)
	return partner, true
}
