// SPDX-License-Identifier: LGPL-3.0-or-later

// Package handshake implements the server's side of the registration
// handshake (spec.md §4.3) and the per-message mediation dispatch
// (spec.md §4.2) driven by the registry package's Hub.
package handshake

import "github.com/oldiegoldie/chatrelay/internal/protocol"

func registerOK(username string) protocol.Envelope {
	e := protocol.New(protocol.TypeRegister, protocol.ServerSender)
	e.Username = username
	e.Message = "registered"
	return e
}

func registerError(reason, message string) protocol.Envelope {
	e := protocol.New(protocol.TypeRegisterError, protocol.ServerSender)
	e.Reason = reason
	e.Message = message
	return e
}

func connectError(message string) protocol.Envelope {
	e := protocol.New(protocol.TypeConnectError, protocol.ServerSender)
	e.Message = message
	return e
}

func tunnelValidate() protocol.Envelope {
	e := protocol.New(protocol.TypeTunnelValidate, protocol.ServerSender)
	e.Message = "submit your shared secret to validate the tunnel"
	return e
}

func tunnelOKKeyInit() protocol.Envelope {
	e := protocol.New(protocol.TypeTunnelOKKeyInit, protocol.ServerSender)
	e.Message = "PSK validated, exchange ephemeral keys"
	return e
}

func tunnelFailed(reason string) protocol.Envelope {
	e := protocol.New(protocol.TypeTunnelFailed, protocol.ServerSender)
	e.Reason = reason
	e.Message = "tunnel validation failed"
	return e
}

func userDisconnected(username string) protocol.Envelope {
	e := protocol.New(protocol.TypeUserDisconnected, protocol.ServerSender)
	e.Username = username
	return e
}

func systemResponse(need string, resInfo any) protocol.Envelope {
	e := protocol.New(protocol.TypeSystemResponse, protocol.ServerSender)
	e.ResponseNeed = need
	e.ResInfo = resInfo
	return e
}

// withSender rewrites an inbound envelope's sender to origin and leaves
// every other field as received, for forwarding it verbatim to another
// client, matching the "forward the request verbatim (with
// sender rewritten to the source username)" rule in spec.md §4.2.
func withSender(env protocol.Envelope, origin string) protocol.Envelope {
	env.Sender = origin
	return env
}
