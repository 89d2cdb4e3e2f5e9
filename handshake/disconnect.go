// SPDX-License-Identifier: LGPL-3.0-or-later

package handshake

import "github.com/oldiegoldie/chatrelay/registry"

// Disconnect runs the cleanup spec.md §4.2 requires on stream end:
// remove the connection from the registry, drop any tunnel pair it was
// part of, and broadcast user_disconnected to every registered
// connection not currently in a tunnel. Because the tunnel pair is
// already gone by the time the broadcast runs, the former partner (now
// untunneled) is included and so observes the disconnect directly.
func Disconnect(hub *registry.Hub, conn registry.Conn) {
	username, _, _ := hub.Unregister(conn)
	if username == "" {
		return
	}
	for _, c := range hub.ListNonTunneled(username) {
		_ = c.Send(userDisconnected(username))
	}
}
