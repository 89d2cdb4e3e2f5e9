package relay

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldiegoldie/chatrelay/internal/protocol"
	"github.com/oldiegoldie/chatrelay/internal/transport/ws"
	"github.com/oldiegoldie/chatrelay/registry"
)

func startRelay(t *testing.T) (string, *registry.Hub) {
	hub := registry.NewHub(registry.Config{ValidationTimeout: time.Minute, SweepInterval: time.Hour})
	t.Cleanup(hub.Close)

	srv := NewServer(hub)
	h := ws.NewHandler()
	h.OnConnect = srv.HandleConnection

	httpSrv := httptest.NewServer(h)
	t.Cleanup(httpSrv.Close)

	return "ws" + strings.TrimPrefix(httpSrv.URL, "http"), hub
}

func dialAndRegister(t *testing.T, url, username string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	env := protocol.New(protocol.TypeRegister, username)
	env.Username = username
	raw, err := protocol.Encode(env)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, raw))

	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	got := protocol.Decode(reply)
	require.Equal(t, protocol.TypeRegister, got.Type)

	return conn
}

func TestRelayRegistersAndTracksInHub(t *testing.T) {
	url, hub := startRelay(t)
	conn := dialAndRegister(t, url, "alice")
	defer conn.Close()

	require.Eventually(t, func() bool {
		return hub.IsRegistered("alice")
	}, time.Second, 10*time.Millisecond)
}

func TestRelayRelaysConnectRequestBetweenTwoClients(t *testing.T) {
	url, _ := startRelay(t)
	alice := dialAndRegister(t, url, "alice")
	defer alice.Close()
	bob := dialAndRegister(t, url, "bob")
	defer bob.Close()

	req := protocol.New(protocol.TypeConnectRequest, "alice")
	req.Target = "bob"
	raw, err := protocol.Encode(req)
	require.NoError(t, err)
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, raw))

	_, reply, err := bob.ReadMessage()
	require.NoError(t, err)
	got := protocol.Decode(reply)
	assert.Equal(t, protocol.TypeConnectRequest, got.Type)
	assert.Equal(t, "alice", got.Sender)
}

func TestRelayDisconnectNotifiesOthers(t *testing.T) {
	url, hub := startRelay(t)
	alice := dialAndRegister(t, url, "alice")
	bob := dialAndRegister(t, url, "bob")
	defer bob.Close()

	require.NoError(t, alice.Close())

	_, reply, err := bob.ReadMessage()
	require.NoError(t, err)
	got := protocol.Decode(reply)
	assert.Equal(t, protocol.TypeUserDisconnected, got.Type)
	assert.Equal(t, "alice", got.Username)

	require.Eventually(t, func() bool {
		return !hub.IsRegistered("alice")
	}, time.Second, 10*time.Millisecond)
}
