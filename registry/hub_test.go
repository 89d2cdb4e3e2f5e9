package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldiegoldie/chatrelay/internal/protocol"
)

type fakeConn struct {
	id     string
	sent   []protocol.Envelope
	closed bool
}

func (f *fakeConn) Send(env protocol.Envelope) error {
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func newTestHub(t *testing.T) *Hub {
	h := NewHub(Config{ValidationTimeout: 50 * time.Millisecond, SweepInterval: 10 * time.Millisecond})
	t.Cleanup(h.Close)
	return h
}

func TestRegisterIsBijection(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeConn{id: "alice"}

	assert.Equal(t, RegisterSuccess, h.Register("alice", alice))
	assert.True(t, h.IsRegistered("alice"))

	got, ok := h.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, alice, got.(*fakeConn))
}

func TestRegisterTakenAndBlocked(t *testing.T) {
	h := newTestHub(t)
	a1 := &fakeConn{id: "a1"}
	a2 := &fakeConn{id: "a2"}

	require.Equal(t, RegisterSuccess, h.Register("alice", a1))
	assert.Equal(t, RegisterTaken, h.Register("alice", a2))

	h.Block("bob")
	assert.Equal(t, RegisterBlocked, h.Register("bob", a2))
}

func TestBlockIsMonotonic(t *testing.T) {
	h := newTestHub(t)
	h.Block("evil")
	assert.True(t, h.IsBlocked("evil"))
	h.Block("other")
	assert.True(t, h.IsBlocked("evil"))
	assert.True(t, h.IsBlocked("other"))
}

func TestUnregisterRemovesTunnel(t *testing.T) {
	h := newTestHub(t)
	alice := &fakeConn{}
	bob := &fakeConn{}
	require.Equal(t, RegisterSuccess, h.Register("alice", alice))
	require.Equal(t, RegisterSuccess, h.Register("bob", bob))

	h.CreatePending("alice", "bob")
	outcome, _ := h.SubmitSecret("alice", []byte("x"))
	assert.Equal(t, ValidationWaiting, outcome)
	outcome, _ = h.SubmitSecret("bob", []byte("x"))
	assert.Equal(t, ValidationMatched, outcome)
	assert.True(t, h.IsTunneled("alice", "bob"))

	username, partner, wasTunneled := h.Unregister(alice)
	assert.Equal(t, "alice", username)
	assert.Equal(t, "bob", partner)
	assert.True(t, wasTunneled)
	assert.False(t, h.IsTunneled("alice", "bob"))
	assert.False(t, h.IsRegistered("alice"))
}

func TestSubmitSecretMismatch(t *testing.T) {
	h := newTestHub(t)
	h.CreatePending("alice", "bob")

	_, _ = h.SubmitSecret("alice", []byte("a"))
	outcome, entry := h.SubmitSecret("bob", []byte("b"))
	assert.Equal(t, ValidationMismatched, outcome)
	require.NotNil(t, entry)
	assert.False(t, h.IsTunneled("alice", "bob"))
}

func TestSubmitSecretNoEntry(t *testing.T) {
	h := newTestHub(t)
	outcome, entry := h.SubmitSecret("ghost", []byte("x"))
	assert.Equal(t, ValidationNoEntry, outcome)
	assert.Nil(t, entry)
}

func TestPendingSweepExpiresEntries(t *testing.T) {
	// The background sweeper is slowed down so that only this test's own
	// sweepPending calls can expire the entry.
	h := NewHub(Config{ValidationTimeout: 50 * time.Millisecond, SweepInterval: time.Hour})
	t.Cleanup(h.Close)
	h.CreatePending("alice", "bob")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if expired := h.sweepPending(); len(expired) > 0 {
			assert.Equal(t, "alice", expired[0].Requester)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("pending entry never expired")
}

func TestPairKeySymmetric(t *testing.T) {
	assert.Equal(t, makePairKey("alice", "bob"), makePairKey("bob", "alice"))
}

func TestListNonTunneledExcludesTunneledAndSelf(t *testing.T) {
	h := newTestHub(t)
	alice, bob, carol := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.Register("alice", alice)
	h.Register("bob", bob)
	h.Register("carol", carol)

	h.CreatePending("alice", "bob")
	h.SubmitSecret("alice", []byte("x"))
	h.SubmitSecret("bob", []byte("x"))

	visible := h.ListNonTunneled("carol")
	assert.NotContains(t, visible, "carol")
	assert.NotContains(t, visible, "alice")
	assert.NotContains(t, visible, "bob")
}

func TestListNonTunneledIncludesOthers(t *testing.T) {
	h := newTestHub(t)
	alice, bob, carol := &fakeConn{}, &fakeConn{}, &fakeConn{}
	h.Register("alice", alice)
	h.Register("bob", bob)
	h.Register("carol", carol)

	h.CreatePending("alice", "bob")
	h.SubmitSecret("alice", []byte("x"))
	h.SubmitSecret("bob", []byte("x"))

	visible := h.ListNonTunneled("somebody-else")
	assert.NotContains(t, visible, "alice")
	assert.NotContains(t, visible, "bob")
	assert.Contains(t, visible, "carol")
}

func TestInviteRedeemAndExpiry(t *testing.T) {
	h := newTestHub(t)
	past := time.Now().Add(-time.Minute)
	h.AddInvite("tok-expired", "", &past)
	h.AddInvite("tok-bound", "alice", nil)

	_, ok := h.CheckInvite("tok-expired")
	assert.False(t, ok)

	inv, ok := h.CheckInvite("tok-bound")
	require.True(t, ok)
	assert.Equal(t, "alice", inv.BoundUsername)

	h.ConsumeInvite("tok-bound")
	_, ok = h.CheckInvite("tok-bound")
	assert.False(t, ok)
}
