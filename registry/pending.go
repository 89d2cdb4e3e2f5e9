// SPDX-License-Identifier: LGPL-3.0-or-later

package registry

import (
	"bytes"
	"time"

	"github.com/oldiegoldie/chatrelay/internal/logger"
	"github.com/oldiegoldie/chatrelay/internal/metrics"
)

// PendingEntry tracks one (requester, responder) pair awaiting PSK
// validation, per spec.md §3's `pending` table.
type PendingEntry struct {
	Requester string
	Responder string
	Secrets   map[string][]byte // username -> submitted psk hash
	Deadline  time.Time
}

// ValidationOutcome is returned by SubmitSecret.
type ValidationOutcome int

const (
	// ValidationWaiting means the pair is still missing a secret.
	ValidationWaiting ValidationOutcome = iota
	// ValidationMatched means both secrets arrived and were equal.
	ValidationMatched
	// ValidationMismatched means both secrets arrived and differed.
	ValidationMismatched
	// ValidationNoEntry means the username had no pending entry.
	ValidationNoEntry
)

// CreatePending creates a pending[(requester, responder)] entry with a
// fresh deadline, per the connect_accept dispatch rule.
func (h *Hub) CreatePending(requester, responder string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := makePairKey(requester, responder)
	h.pending[key] = &PendingEntry{
		Requester: requester,
		Responder: responder,
		Secrets:   make(map[string][]byte),
		Deadline:  time.Now().Add(h.validation),
	}
	metrics.PendingValidations.Set(float64(len(h.pending)))
}

// SubmitSecret records username's submitted PSK hash against the
// pending entry that contains it. Once both sides have submitted, it
// resolves to ValidationMatched or ValidationMismatched and removes the
// entry; the caller is responsible for acting on the outcome (emitting
// tunnel_ok_key_init/tunnel_failed, blocking, closing connections).
func (h *Hub) SubmitSecret(username string, hash []byte) (ValidationOutcome, *PendingEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var key pairKey
	var entry *PendingEntry
	for k, e := range h.pending {
		if e.Requester == username || e.Responder == username {
			key, entry = k, e
			break
		}
	}
	if entry == nil {
		return ValidationNoEntry, nil
	}

	entry.Secrets[username] = hash
	if len(entry.Secrets) < 2 {
		return ValidationWaiting, entry
	}

	reqHash := entry.Secrets[entry.Requester]
	resHash := entry.Secrets[entry.Responder]
	delete(h.pending, key)
	metrics.PendingValidations.Set(float64(len(h.pending)))

	if bytes.Equal(reqHash, resHash) {
		h.establishTunnelLocked(entry.Requester, entry.Responder)
		metrics.TunnelsEstablished.WithLabelValues("matched").Inc()
		return ValidationMatched, entry
	}
	metrics.TunnelsEstablished.WithLabelValues("mismatched").Inc()
	return ValidationMismatched, entry
}

// sweepPending purges pending entries past their deadline, matching the
// ≈1Hz sweeper in spec.md §4.2.
func (h *Hub) sweepPending() []*PendingEntry {
	h.mu.Lock()
	now := time.Now()
	var expired []*PendingEntry
	for key, entry := range h.pending {
		if now.After(entry.Deadline) {
			expired = append(expired, entry)
			delete(h.pending, key)
		}
	}
	if len(expired) > 0 {
		metrics.PendingValidations.Set(float64(len(h.pending)))
	}
	h.mu.Unlock()

	metrics.ValidationSweeps.Inc()
	if len(expired) > 0 {
		metrics.ValidationTimeouts.Add(float64(len(expired)))
		metrics.TunnelsEstablished.WithLabelValues("timeout").Add(float64(len(expired)))
		h.log.Info("pending validations timed out", logger.Int("count", len(expired)))
	}
	return expired
}
