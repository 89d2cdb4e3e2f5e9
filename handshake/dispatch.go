// SPDX-License-Identifier: LGPL-3.0-or-later

package handshake

import (
	"encoding/base64"
	"time"

	"github.com/oldiegoldie/chatrelay/internal/logger"
	"github.com/oldiegoldie/chatrelay/internal/metrics"
	"github.com/oldiegoldie/chatrelay/internal/protocol"
	"github.com/oldiegoldie/chatrelay/registry"
)

// Dispatch routes one inbound envelope from sender according to
// spec.md §4.2's per-type mediation rules. It never returns an error:
// every failure mode has an explicit wire-level or silent-drop policy
// (spec.md §7), so there is nothing left for the caller to propagate.
func Dispatch(hub *registry.Hub, sender string, conn registry.Conn, env protocol.Envelope) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.MessagesRelayed.WithLabelValues(string(env.Type), outcome).Inc()
		metrics.MessageProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	switch env.Type {
	case protocol.TypeConnectRequest:
		target, ok := hub.Lookup(env.Target)
		if !ok {
			outcome = "error"
			_ = conn.Send(connectError("user not registered: " + env.Target))
			return
		}
		_ = target.Send(withSender(env, sender))

	case protocol.TypeConnectBusy:
		target, ok := hub.Lookup(env.Target)
		if !ok {
			outcome = "error"
			return
		}
		_ = target.Send(withSender(env, sender))

	case protocol.TypeConnectDeny:
		target, ok := hub.Lookup(env.Target)
		if !ok {
			outcome = "error"
			return
		}
		_ = target.Send(withSender(env, sender))

	case protocol.TypeConnectAccept:
		requester := env.Target
		responder := sender
		requesterConn, ok := hub.Lookup(requester)
		if !ok {
			outcome = "error"
			return
		}
		_ = requesterConn.Send(withSender(env, responder))

		responderConn, ok := hub.Lookup(responder)
		if !ok {
			outcome = "error"
			return
		}
		hub.CreatePending(requester, responder)
		_ = requesterConn.Send(tunnelValidate())
		_ = responderConn.Send(tunnelValidate())

	case protocol.TypeTunnelSecret:
		hash, err := base64.StdEncoding.DecodeString(env.Secret)
		if err != nil {
			outcome = "error"
			return
		}
		resolveValidation(hub, sender, hash)

	case protocol.TypeKeyShare:
		target, ok := hub.Lookup(env.Target)
		if !ok {
			outcome = "error"
			_ = conn.Send(connectError("user not registered: " + env.Target))
			return
		}
		_ = target.Send(withSender(env, sender))

	case protocol.TypeEncryptedMessage:
		if !hub.IsTunneled(sender, env.Target) {
			outcome = "error"
			_ = conn.Send(connectError("no active tunnel with " + env.Target))
			return
		}
		target, ok := hub.Lookup(env.Target)
		if !ok {
			outcome = "error"
			return
		}
		_ = target.Send(withSender(env, sender))

	case protocol.TypeTunnelExit:
		partner, had := hub.RemoveTunnel(sender)
		if !had {
			return
		}
		if target, ok := hub.Lookup(partner); ok {
			_ = target.Send(withSender(env, sender))
		}

	case protocol.TypeSystemRequest:
		if env.Need == "list_users" {
			_ = conn.Send(systemResponse("list_users", hub.ListUsernames()))
		}

	case protocol.TypeChatMessage:
		for _, c := range hub.ListNonTunneled(sender) {
			_ = c.Send(withSender(env, sender))
		}

	default:
		// Unknown types are tolerated no-ops per spec.md §4.5.
	}
}

// resolveValidation handles one side's tunnel_secret submission and
// acts on the outcome: matched both PSK hashes establish the tunnel and
// trigger the key-exchange signal; mismatched blocks and disconnects
// both parties.
func resolveValidation(hub *registry.Hub, sender string, hash []byte) {
	outcome, entry := hub.SubmitSecret(sender, hash)
	switch outcome {
	case registry.ValidationMatched:
		reqConn, reqOK := hub.Lookup(entry.Requester)
		resConn, resOK := hub.Lookup(entry.Responder)
		if reqOK {
			_ = reqConn.Send(tunnelOKKeyInit())
		}
		if resOK {
			_ = resConn.Send(tunnelOKKeyInit())
		}
	case registry.ValidationMismatched:
		DisconnectPair(hub, entry.Requester, entry.Responder, "psk_mismatch")
	case registry.ValidationWaiting, registry.ValidationNoEntry:
		// Nothing to do yet, or a stray message for an already-resolved pair.
	}
}

// DisconnectPair implements the PSK-mismatch/timeout failure policy
// shared by tunnel_secret mismatch and the validation sweeper: notify,
// block, and close both connections.
func DisconnectPair(hub *registry.Hub, a, b, reason string) {
	aConn, aOK := hub.Lookup(a)
	bConn, bOK := hub.Lookup(b)
	if aOK {
		_ = aConn.Send(tunnelFailed(reason))
	}
	if bOK {
		_ = bConn.Send(tunnelFailed(reason))
	}
	hub.Block(a, b)
	if aOK {
		_ = aConn.Close()
	}
	if bOK {
		_ = bConn.Close()
	}
	logger.GetDefaultLogger().Info("tunnel validation failed, both parties blocked",
		logger.String("a", a), logger.String("b", b), logger.String("reason", reason))
}
