// SPDX-License-Identifier: LGPL-3.0-or-later

package ws

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Dial connects to a chat relay server at url ("ws://" or "wss://"),
// presenting token as a Bearer Authorization header when non-empty
// (invite-token mode, spec.md §6). The caller owns the returned Conn
// and must Close it.
func Dial(url, token string) (*Conn, error) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	wsConn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("ws: dial %s: unauthorized, invalid or missing invite token", url)
		}
		return nil, fmt.Errorf("ws: dial %s: %w", url, err)
	}

	return newConn(uuid.NewString(), wsConn), nil
}
