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

// Package cryptox implements the tunnel handshake primitives: X25519
// ephemeral key agreement, PSK hashing, HKDF-SHA256 session-key derivation,
// and AES-256-GCM sealing in the wire layout the relay commits to.
package cryptox

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/oldiegoldie/chatrelay/internal/metrics"
)

// KeyPair is an ephemeral X25519 key pair generated per tunnel attempt.
type KeyPair struct {
	private *ecdh.PrivateKey
	public  *ecdh.PublicKey
}

// GenerateKeyPair creates a fresh X25519 ephemeral key pair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("keygen").Inc()
		return nil, fmt.Errorf("cryptox: generate x25519 key pair: %w", err)
	}
	metrics.CryptoOperations.WithLabelValues("keygen").Inc()
	return &KeyPair{private: priv, public: priv.PublicKey()}, nil
}

// PublicBytes returns the raw 32-byte public key for wire transmission.
func (k *KeyPair) PublicBytes() []byte {
	return k.public.Bytes()
}

// DeriveSharedSecret computes the ECDH shared secret with a peer's raw
// public key bytes, matching the teacher's X25519KeyPair.DeriveSharedSecret.
func (k *KeyPair) DeriveSharedSecret(peerPub []byte) ([]byte, error) {
	pub, err := ecdh.X25519().NewPublicKey(peerPub)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("ecdh").Inc()
		return nil, fmt.Errorf("cryptox: invalid peer public key: %w", err)
	}
	ss, err := k.private.ECDH(pub)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("ecdh").Inc()
		return nil, fmt.Errorf("cryptox: ecdh: %w", err)
	}
	metrics.CryptoOperations.WithLabelValues("ecdh").Inc()
	return ss, nil
}

// HashPSK returns SHA-256(psk), used both as the tunnel_secret wire value
// and as the HKDF salt for session-key derivation.
func HashPSK(psk string) []byte {
	sum := sha256.Sum256([]byte(psk))
	return sum[:]
}
