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

// Package protocol defines the wire envelope and message-type catalog for
// the chat relay and its clients.
package protocol

// ProtocolVersion is the envelope's protocol_version field value.
const ProtocolVersion = "1.0"

// Type is the authoritative catalog of envelope "type" values.
type Type string

const (
	TypeRegister         Type = "register"
	TypeRegisterError    Type = "register_error"
	TypeConnectRequest   Type = "connect_request"
	TypeConnectAccept    Type = "connect_accept"
	TypeConnectDeny      Type = "connect_deny"
	TypeConnectBusy      Type = "connect_busy"
	TypeConnectError     Type = "connect_error"
	TypeTunnelValidate   Type = "tunnel_validate"
	TypeTunnelSecret     Type = "tunnel_secret"
	TypeTunnelOKKeyInit  Type = "tunnel_ok_key_init"
	TypeTunnelFailed     Type = "tunnel_failed"
	TypeKeyShare         Type = "key_share"
	TypeEncryptedMessage Type = "encrypted_message"
	TypeTunnelExit       Type = "tunnel_exit"
	TypeUserDisconnected Type = "user_disconnected"
	TypeChatMessage      Type = "chat_message"
	TypeSystemMessage    Type = "system_message"
	TypeSystemRequest    Type = "system_request"
	TypeSystemResponse   Type = "system_response"
)

// ServerSender is used as the sender field for server-originated envelopes.
const ServerSender = "Server"

// MaxSenderLen and MaxMessageLen bound the human-facing envelope fields
// (spec's "sender length <= 50; message length <= 500").
const (
	MaxSenderLen  = 50
	MaxMessageLen = 500
)

// Envelope is the single JSON object exchanged over the WebSocket text
// frames. Every field beyond protocol_version/type/sender/timestamp is
// type-specific and left as omitempty so a given message only carries the
// fields its type actually uses.
type Envelope struct {
	ProtocolVersion string `json:"protocol_version"`
	Type            Type   `json:"type"`
	Sender          string `json:"sender"`
	Timestamp       string `json:"timestamp"`

	Target      string `json:"target,omitempty"`
	Message     string `json:"message,omitempty"`
	Username    string `json:"username,omitempty"`
	Key         string `json:"key,omitempty"`
	Secret      string `json:"secret,omitempty"`
	PayloadB64  string `json:"payload_b64,omitempty"`
	Need        string `json:"need,omitempty"`
	ResponseNeed string `json:"response_need,omitempty"`
	ResInfo     any    `json:"res_info,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Accepted    *bool  `json:"accepted,omitempty"`
}
