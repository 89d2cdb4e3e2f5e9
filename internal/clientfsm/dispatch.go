// SPDX-License-Identifier: LGPL-3.0-or-later

package clientfsm

import (
	"encoding/base64"

	"github.com/oldiegoldie/chatrelay/internal/cryptox"
	"github.com/oldiegoldie/chatrelay/internal/protocol"
	"github.com/oldiegoldie/chatrelay/session"
)

// Dispatch handles one inbound envelope, advancing the state machine
// per spec.md §4.1's transition table. It is the single entry point a
// transport read-loop calls into; there are no other handler callbacks.
func (c *Client) Dispatch(env protocol.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch env.Type {
	case protocol.TypeConnectRequest:
		c.handleConnectRequestLocked(env)

	case protocol.TypeConnectAccept:
		if c.status == StatusRequestSent && env.Sender == c.peer {
			c.status = StatusWaitTunnelTrigger
		}

	case protocol.TypeConnectDeny, protocol.TypeConnectBusy, protocol.TypeConnectError:
		if c.status == StatusRequestSent && (env.Sender == c.peer || env.Type == protocol.TypeConnectError) {
			c.notify("connection request to %s was rejected: %s", c.peer, env.Message)
			c.resetLocked()
		}

	case protocol.TypeTunnelValidate:
		if c.status == StatusWaitTunnelTrigger {
			c.status = StatusTunnelValidating
			if c.OnInputRequest != nil {
				req := InputRequest{Kind: InputPSK, Peer: c.peer, Timeout: PSKInputTimeout}
				go c.OnInputRequest(req)
			}
		}

	case protocol.TypeTunnelOKKeyInit:
		c.handleTunnelOKLocked()

	case protocol.TypeKeyShare:
		c.handleKeyShareLocked(env)

	case protocol.TypeTunnelFailed:
		c.notify("tunnel with %s failed: %s", c.peer, env.Reason)
		c.resetLocked()

	case protocol.TypeTunnelExit:
		if env.Sender == c.peer {
			c.notify("%s exited the tunnel", c.peer)
			c.resetLocked()
		}

	case protocol.TypeUserDisconnected:
		if env.Username == c.peer {
			c.notify("%s disconnected", env.Username)
			c.resetLocked()
		}

	case protocol.TypeEncryptedMessage:
		c.handleEncryptedLocked(env)

	case protocol.TypeChatMessage:
		c.notify("%s: %s", env.Sender, env.Message)

	case protocol.TypeSystemMessage:
		c.notify("%s", env.Message)

	case protocol.TypeSystemResponse:
		c.notify("%s: %v", env.ResponseNeed, env.ResInfo)

	case protocol.TypeRegisterError:
		c.notify("registration error: %s", env.Message)

	default:
		// Unknown types are tolerated no-ops, matching the relay's own
		// dispatch policy.
	}
}

func (c *Client) handleConnectRequestLocked(env protocol.Envelope) {
	if c.status != StatusIdle {
		// Busy: spec.md §4.1 has the client answer connect_busy itself
		// rather than silently dropping the request.
		busy := protocol.New(protocol.TypeConnectBusy, c.username)
		busy.Target = env.Sender
		_ = c.conn.Send(busy)
		return
	}
	c.peer = env.Sender
	c.status = StatusRequestReceived
	if c.OnInputRequest != nil {
		go c.OnInputRequest(InputRequest{Kind: InputAcceptDeny, Peer: c.peer})
	}
}

func (c *Client) handleTunnelOKLocked() {
	if c.status != StatusTunnelValidating {
		return
	}
	c.status = StatusTunnelActive
	c.awaitingKeyExchange = true

	kp, err := cryptox.GenerateKeyPair()
	if err != nil {
		c.notify("failed to generate ephemeral key: %v", err)
		c.resetLocked()
		return
	}
	c.keyPair = kp

	share := protocol.New(protocol.TypeKeyShare, c.username)
	share.Target = c.peer
	share.Key = base64.StdEncoding.EncodeToString(kp.PublicBytes())
	_ = c.conn.Send(share)
}

func (c *Client) handleKeyShareLocked(env protocol.Envelope) {
	if c.status != StatusTunnelActive || !c.awaitingKeyExchange || env.Sender != c.peer {
		return
	}
	if c.keyPair == nil || c.pskHash == nil {
		return
	}

	peerPub, err := base64.StdEncoding.DecodeString(env.Key)
	if err != nil {
		c.notify("peer sent an invalid key_share")
		c.resetLocked()
		return
	}

	shared, err := c.keyPair.DeriveSharedSecret(peerPub)
	if err != nil {
		c.notify("key exchange failed: %v", err)
		c.resetLocked()
		return
	}

	tunnel, err := session.NewTunnel(c.peer, shared, c.pskHash, session.Config{})
	if err != nil {
		c.notify("failed to derive session key: %v", err)
		c.resetLocked()
		return
	}
	c.sessions.Set(tunnel)
	c.awaitingKeyExchange = false
	c.notify("encrypted tunnel with %s is now active", c.peer)
}

func (c *Client) handleEncryptedLocked(env protocol.Envelope) {
	if c.status != StatusTunnelActive || env.Sender != c.peer {
		return
	}
	tunnel, ok := c.sessions.Get(c.peer)
	if !ok {
		return
	}
	payload, err := base64.StdEncoding.DecodeString(env.PayloadB64)
	if err != nil {
		c.notify("dropped malformed encrypted message from %s", c.peer)
		return
	}
	plaintext, err := tunnel.Open(payload)
	if err != nil {
		c.notify("dropped undecryptable message from %s", c.peer)
		return
	}
	inner := protocol.Decode(plaintext)
	c.notify("%s (encrypted): %s", inner.Sender, inner.Message)
}
