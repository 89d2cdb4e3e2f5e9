// SPDX-License-Identifier: LGPL-3.0-or-later

package clientfsm

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/oldiegoldie/chatrelay/internal/cryptox"
	"github.com/oldiegoldie/chatrelay/internal/protocol"
	"github.com/oldiegoldie/chatrelay/session"
)

// PSKInputTimeout bounds how long a Client waits for the user to type
// the pre-shared secret once tunnel_validating begins.
const PSKInputTimeout = 30 * time.Second

// Sender is the minimal transport surface a Client needs: enqueue an
// outbound envelope. internal/transport/ws.Conn satisfies this.
type Sender interface {
	Send(env protocol.Envelope) error
}

// Client drives one terminal user's connection-lifecycle state machine
// (spec.md §4.1) off inbound envelopes and local command calls. A
// single dispatch method handles every inbound message type, per the
// teacher's preference for one funneled switch over scattered handler
// callbacks.
type Client struct {
	mu sync.Mutex

	username string
	conn     Sender

	status Status
	peer   string

	// awaitingKeyExchange is the internal gating sub-state entered on
	// tunnel_ok_key_init (Design Notes §9 item 1 / SPEC_FULL.md §4):
	// externally still reported as tunnel_active, but outbound chat
	// stays in plaintext broadcast mode until both the local key pair
	// exists and the peer's key_share has been folded into a derived
	// session key.
	awaitingKeyExchange bool
	keyPair             *cryptox.KeyPair
	pskHash             []byte

	// sessions holds the established tunnel for the current peer (and
	// only ever one, per spec.md §4.1's single-peer-interaction
	// contract), keyed and swept the way session.Manager does for any
	// client that might grow beyond one concurrent tunnel.
	sessions *session.Manager

	// OnInputRequest, when set, is invoked on its own goroutine whenever
	// the state machine needs a value from the user (PSK, accept/deny).
	// The frontend answers asynchronously via SubmitInput.
	OnInputRequest func(req InputRequest)

	// OnNotify reports state changes and inbound chat/system text to
	// the frontend for display; nil is a valid no-op.
	OnNotify func(msg string)
}

// New builds an idle Client bound to username, sending outbound
// envelopes through conn.
func New(username string, conn Sender) *Client {
	return &Client{
		username: username,
		conn:     conn,
		status:   StatusIdle,
		sessions: session.NewManager(session.Config{}),
	}
}

// Status reports the externally visible connection state (the
// awaiting_key_exchange sub-state is never surfaced here, matching
// spec.md's state names exactly).
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Peer returns the current interaction partner, or "" when idle.
func (c *Client) Peer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer
}

// Close stops the session manager's idle-sweep goroutine and closes any
// held tunnel. Callers should invoke this once the connection is torn
// down for good.
func (c *Client) Close() error {
	return c.sessions.Close()
}

func (c *Client) notify(format string, args ...any) {
	if c.OnNotify != nil {
		c.OnNotify(fmt.Sprintf(format, args...))
	}
}

// Connect issues a local /connect @peer command. Only valid from idle;
// any other state rejects locally without touching the wire, per
// spec.md §4.1's "only one active peer interaction at a time" contract.
func (c *Client) Connect(peer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusIdle {
		return fmt.Errorf("clientfsm: cannot connect while %s", c.status)
	}
	if peer == "" || peer == c.username {
		return fmt.Errorf("clientfsm: invalid connect target %q", peer)
	}

	env := protocol.New(protocol.TypeConnectRequest, c.username)
	env.Target = peer
	if err := c.conn.Send(env); err != nil {
		return err
	}
	c.peer = peer
	c.status = StatusRequestSent
	return nil
}

// Accept answers an inbound connect_request with /accept. Only valid
// from request_received.
func (c *Client) Accept() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusRequestReceived {
		return fmt.Errorf("clientfsm: no pending request to accept")
	}
	env := protocol.New(protocol.TypeConnectAccept, c.username)
	env.Target = c.peer
	if err := c.conn.Send(env); err != nil {
		return err
	}
	c.status = StatusWaitTunnelTrigger
	return nil
}

// Deny answers an inbound connect_request with /deny, or cancels an
// outgoing request_sent locally (spec.md §4.1 lists /deny as a valid
// transition from both request_sent and request_received).
func (c *Client) Deny() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status {
	case StatusRequestReceived:
		env := protocol.New(protocol.TypeConnectDeny, c.username)
		env.Target = c.peer
		if err := c.conn.Send(env); err != nil {
			return err
		}
	case StatusRequestSent:
		env := protocol.New(protocol.TypeConnectDeny, c.username)
		env.Target = c.peer
		_ = c.conn.Send(env)
	default:
		return fmt.Errorf("clientfsm: nothing to deny in state %s", c.status)
	}
	c.resetLocked()
	return nil
}

// ExitTunnel issues a local /exit_tunnel command, valid only from
// tunnel_active.
func (c *Client) ExitTunnel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusTunnelActive {
		return fmt.Errorf("clientfsm: no active tunnel to exit")
	}
	env := protocol.New(protocol.TypeTunnelExit, c.username)
	env.Target = c.peer
	err := c.conn.Send(env)
	c.resetLocked()
	return err
}

// Pending reports the current state without mutating it (the /pending
// supplementary command).
func (c *Client) Pending() (Status, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.peer
}

// ListUsers issues the /list_users supplementary command.
func (c *Client) ListUsers() error {
	env := protocol.New(protocol.TypeSystemRequest, c.username)
	env.Need = "list_users"
	return c.conn.Send(env)
}

// SubmitInput feeds back the answer to a previously issued
// InputRequest: the PSK during tunnel_validating.
func (c *Client) SubmitInput(res InputResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch res.Kind {
	case InputPSK:
		if c.status != StatusTunnelValidating {
			return fmt.Errorf("clientfsm: not awaiting a PSK")
		}
		if res.TimedOut {
			c.resetLocked()
			return fmt.Errorf("clientfsm: PSK input timed out")
		}
		c.pskHash = cryptox.HashPSK(res.Value)
		env := protocol.New(protocol.TypeTunnelSecret, c.username)
		env.Secret = base64.StdEncoding.EncodeToString(c.pskHash)
		return c.conn.Send(env)
	default:
		return fmt.Errorf("clientfsm: unexpected input kind %q", res.Kind)
	}
}

// SendMessage sends text to the current peer. While awaitingKeyExchange
// is true (tunnel_active reported, but no session key yet) it falls
// back to a plain broadcast chat_message, matching the ordering
// subtlety in spec.md §7: a port must not emit ciphertext before the
// peer's key_share has been folded in.
func (c *Client) SendMessage(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tunnel, ok := c.sessions.Get(c.peer); c.status == StatusTunnelActive && !c.awaitingKeyExchange && ok {
		inner := protocol.New(protocol.TypeChatMessage, c.username)
		inner.Message = text
		innerJSON, err := protocol.Encode(inner)
		if err != nil {
			return fmt.Errorf("clientfsm: encode inner envelope: %w", err)
		}
		sealed, err := tunnel.Seal(innerJSON)
		if err != nil {
			return fmt.Errorf("clientfsm: seal message: %w", err)
		}
		env := protocol.New(protocol.TypeEncryptedMessage, c.username)
		env.Target = c.peer
		env.PayloadB64 = base64.StdEncoding.EncodeToString(sealed)
		return c.conn.Send(env)
	}

	env := protocol.New(protocol.TypeChatMessage, c.username)
	env.Message = text
	return c.conn.Send(env)
}

// resetLocked returns the client to idle and discards any in-progress
// handshake material. Callers must hold c.mu.
func (c *Client) resetLocked() {
	if c.peer != "" {
		c.sessions.Remove(c.peer)
	}
	c.status = StatusIdle
	c.peer = ""
	c.awaitingKeyExchange = false
	c.keyPair = nil
	c.pskHash = nil
}
