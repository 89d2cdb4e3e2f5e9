package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldiegoldie/chatrelay/internal/protocol"
)

func TestDisconnectRemovesFromRegistryAndBroadcasts(t *testing.T) {
	hub := newTestHub(t)
	alice, bob, carol := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register("alice", alice)
	hub.Register("bob", bob)
	hub.Register("carol", carol)

	Disconnect(hub, alice)

	assert.False(t, hub.IsRegistered("alice"))
	require.Len(t, bob.sent, 1)
	assert.Equal(t, protocol.TypeUserDisconnected, bob.sent[0].Type)
	assert.Equal(t, "alice", bob.sent[0].Username)
	require.Len(t, carol.sent, 1)
}

func TestDisconnectDropsTunnelAndNotifiesFormerPartner(t *testing.T) {
	hub := newTestHub(t)
	alice, bob := &fakeConn{}, &fakeConn{}
	hub.Register("alice", alice)
	hub.Register("bob", bob)
	hub.CreatePending("alice", "bob")
	hub.SubmitSecret("alice", []byte("x"))
	hub.SubmitSecret("bob", []byte("x"))
	require.True(t, hub.IsTunneled("alice", "bob"))

	Disconnect(hub, alice)

	assert.False(t, hub.IsTunneled("alice", "bob"))
	require.Len(t, bob.sent, 1)
	assert.Equal(t, protocol.TypeUserDisconnected, bob.sent[0].Type)
}

func TestDisconnectUnknownConnIsNoOp(t *testing.T) {
	hub := newTestHub(t)
	Disconnect(hub, &fakeConn{})
}
