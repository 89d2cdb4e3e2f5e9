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

// Package session holds the client-side tunnel crypto state: the
// per-peer session key derived at the end of the PSK handshake, and the
// AEAD operations used to seal/open encrypted_message payloads. This is
// the client's half of spec.md's `tunnel_keys` entity; the server never
// holds a session key (E2E encrypted_message payloads are opaque to it).
package session

import "time"

// Config bounds a tunnel's lifetime. Both fields are optional (zero
// disables the corresponding check) since spec.md places no TTL on an
// active tunnel: it lives until tunnel_exit or disconnect.
type Config struct {
	MaxAge      time.Duration
	IdleTimeout time.Duration
}

// Status reports the Manager's current tunnel population.
type Status struct {
	ActiveTunnels int
}
