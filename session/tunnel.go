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

package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/oldiegoldie/chatrelay/internal/cryptox"
)

// Tunnel is one peer's end of an established, end-to-end-encrypted
// chat tunnel: the derived AES-256-GCM session key plus bookkeeping.
// Both peers construct their own Tunnel independently (the key is never
// transmitted); DeriveSessionKey's symmetry guarantees they match.
type Tunnel struct {
	mu sync.Mutex

	peer         string
	sessionKey   []byte
	createdAt    time.Time
	lastUsedAt   time.Time
	messageCount int
	config       Config
	closed       bool
}

// NewTunnel derives the session key from the completed handshake's
// shared secret and PSK hash and returns a ready-to-use Tunnel for peer.
func NewTunnel(peer string, sharedSecret, pskHash []byte, cfg Config) (*Tunnel, error) {
	key, err := cryptox.DeriveSessionKey(sharedSecret, pskHash)
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	now := time.Now()
	return &Tunnel{
		peer:       peer,
		sessionKey: key,
		createdAt:  now,
		lastUsedAt: now,
		config:     cfg,
	}, nil
}

// Peer returns the username this tunnel is established with.
func (t *Tunnel) Peer() string {
	return t.peer
}

// CreatedAt returns when the tunnel was established.
func (t *Tunnel) CreatedAt() time.Time {
	return t.createdAt
}

// LastUsedAt returns the last time Seal or Open succeeded.
func (t *Tunnel) LastUsedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastUsedAt
}

// MessageCount returns how many messages have been sealed or opened.
func (t *Tunnel) MessageCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.messageCount
}

// IsExpired reports whether the tunnel has exceeded its configured
// MaxAge or IdleTimeout. Both are opt-in (zero value disables).
func (t *Tunnel) IsExpired() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return true
	}
	now := time.Now()
	if t.config.MaxAge > 0 && now.After(t.createdAt.Add(t.config.MaxAge)) {
		return true
	}
	if t.config.IdleTimeout > 0 && now.After(t.lastUsedAt.Add(t.config.IdleTimeout)) {
		return true
	}
	return false
}

func (t *Tunnel) touch() {
	t.lastUsedAt = time.Now()
	t.messageCount++
}

// Seal encrypts plaintext (the inner envelope JSON, per spec.md §4.4)
// into the nonce||tag||ciphertext wire layout.
func (t *Tunnel) Seal(plaintext []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("session: tunnel to %s is closed", t.peer)
	}
	out, err := cryptox.Seal(t.sessionKey, plaintext)
	if err != nil {
		return nil, err
	}
	t.touch()
	return out, nil
}

// Open decrypts a nonce||tag||ciphertext payload produced by the peer's
// Seal. A GCM authentication failure is returned as an error; per
// spec.md §4.4's failure-mode policy, the caller should log and drop
// the message rather than tear down the tunnel.
func (t *Tunnel) Open(payload []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, fmt.Errorf("session: tunnel to %s is closed", t.peer)
	}
	out, err := cryptox.Open(t.sessionKey, payload)
	if err != nil {
		return nil, err
	}
	t.touch()
	return out, nil
}

// Close zeroes the session key and marks the tunnel unusable.
func (t *Tunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for i := range t.sessionKey {
		t.sessionKey[i] = 0
	}
	return nil
}
