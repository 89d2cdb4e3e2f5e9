package clientfsm

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldiegoldie/chatrelay/internal/cryptox"
	"github.com/oldiegoldie/chatrelay/internal/protocol"
)

type fakeSender struct {
	sent []protocol.Envelope
}

func (f *fakeSender) Send(env protocol.Envelope) error {
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeSender) last() protocol.Envelope {
	return f.sent[len(f.sent)-1]
}

func TestConnectOnlyFromIdle(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)

	require.NoError(t, c.Connect("bob"))
	assert.Equal(t, StatusRequestSent, c.Status())
	assert.Equal(t, protocol.TypeConnectRequest, s.last().Type)

	assert.Error(t, c.Connect("carol"))
}

func TestInboundConnectRequestWhileIdleBecomesRequestReceived(t *testing.T) {
	s := &fakeSender{}
	c := New("bob", s)

	env := protocol.New(protocol.TypeConnectRequest, "alice")
	c.Dispatch(env)

	assert.Equal(t, StatusRequestReceived, c.Status())
	assert.Equal(t, "alice", c.Peer())
}

func TestInboundConnectRequestWhileBusySendsConnectBusy(t *testing.T) {
	s := &fakeSender{}
	c := New("bob", s)
	require.NoError(t, c.Connect("carol"))

	env := protocol.New(protocol.TypeConnectRequest, "alice")
	c.Dispatch(env)

	assert.Equal(t, StatusRequestSent, c.Status()) // unaffected
	assert.Equal(t, protocol.TypeConnectBusy, s.last().Type)
	assert.Equal(t, "alice", s.last().Target)
}

func TestAcceptMovesToWaitTunnelTrigger(t *testing.T) {
	s := &fakeSender{}
	c := New("bob", s)
	c.Dispatch(protocol.New(protocol.TypeConnectRequest, "alice"))

	require.NoError(t, c.Accept())
	assert.Equal(t, StatusWaitTunnelTrigger, c.Status())
	assert.Equal(t, protocol.TypeConnectAccept, s.last().Type)
}

func TestDenyFromRequestReceivedResetsToIdle(t *testing.T) {
	s := &fakeSender{}
	c := New("bob", s)
	c.Dispatch(protocol.New(protocol.TypeConnectRequest, "alice"))

	require.NoError(t, c.Deny())
	assert.Equal(t, StatusIdle, c.Status())
	assert.Equal(t, protocol.TypeConnectDeny, s.last().Type)
}

func TestConnectAcceptFromPeerMovesRequestSentToWaitTunnelTrigger(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)
	require.NoError(t, c.Connect("bob"))

	c.Dispatch(protocol.New(protocol.TypeConnectAccept, "bob"))
	assert.Equal(t, StatusWaitTunnelTrigger, c.Status())
}

func TestConnectDenyResetsRequestSentToIdle(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)
	require.NoError(t, c.Connect("bob"))

	c.Dispatch(protocol.New(protocol.TypeConnectDeny, "bob"))
	assert.Equal(t, StatusIdle, c.Status())
}

func TestTunnelValidateRequestsPSKInput(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)
	require.NoError(t, c.Connect("bob"))
	c.Dispatch(protocol.New(protocol.TypeConnectAccept, "bob"))

	requested := make(chan InputRequest, 1)
	c.OnInputRequest = func(req InputRequest) { requested <- req }

	c.Dispatch(protocol.New(protocol.TypeTunnelValidate, protocol.ServerSender))
	assert.Equal(t, StatusTunnelValidating, c.Status())

	req := <-requested
	assert.Equal(t, InputPSK, req.Kind)
}

func TestSubmitPSKSendsTunnelSecret(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)
	require.NoError(t, c.Connect("bob"))
	c.Dispatch(protocol.New(protocol.TypeConnectAccept, "bob"))
	c.Dispatch(protocol.New(protocol.TypeTunnelValidate, protocol.ServerSender))

	require.NoError(t, c.SubmitInput(InputResult{Kind: InputPSK, Value: "shared-secret"}))
	assert.Equal(t, protocol.TypeTunnelSecret, s.last().Type)
	assert.NotEmpty(t, s.last().Secret)
}

func TestTunnelOKGeneratesKeyPairAndSendsKeyShare(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)
	require.NoError(t, c.Connect("bob"))
	c.Dispatch(protocol.New(protocol.TypeConnectAccept, "bob"))
	c.Dispatch(protocol.New(protocol.TypeTunnelValidate, protocol.ServerSender))
	require.NoError(t, c.SubmitInput(InputResult{Kind: InputPSK, Value: "shared-secret"}))

	c.Dispatch(protocol.New(protocol.TypeTunnelOKKeyInit, protocol.ServerSender))

	assert.Equal(t, StatusTunnelActive, c.Status())
	assert.Equal(t, protocol.TypeKeyShare, s.last().Type)
	assert.NotEmpty(t, s.last().Key)
}

func TestSendMessageFallsBackToPlainChatWhileAwaitingKeyExchange(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)
	require.NoError(t, c.Connect("bob"))
	c.Dispatch(protocol.New(protocol.TypeConnectAccept, "bob"))
	c.Dispatch(protocol.New(protocol.TypeTunnelValidate, protocol.ServerSender))
	require.NoError(t, c.SubmitInput(InputResult{Kind: InputPSK, Value: "shared-secret"}))
	c.Dispatch(protocol.New(protocol.TypeTunnelOKKeyInit, protocol.ServerSender))

	require.NoError(t, c.SendMessage("hello"))
	assert.Equal(t, protocol.TypeChatMessage, s.last().Type)
}

func TestKeyShareCompletesHandshakeAndEnablesEncryptedSend(t *testing.T) {
	aliceSender := &fakeSender{}
	alice := New("alice", aliceSender)
	require.NoError(t, alice.Connect("bob"))
	alice.Dispatch(protocol.New(protocol.TypeConnectAccept, "bob"))
	alice.Dispatch(protocol.New(protocol.TypeTunnelValidate, protocol.ServerSender))
	require.NoError(t, alice.SubmitInput(InputResult{Kind: InputPSK, Value: "same-psk"}))
	alice.Dispatch(protocol.New(protocol.TypeTunnelOKKeyInit, protocol.ServerSender))

	// Simulate a peer's independently generated ephemeral key pair.
	peerKP, err := cryptox.GenerateKeyPair()
	require.NoError(t, err)

	share := protocol.New(protocol.TypeKeyShare, "bob")
	share.Key = base64.StdEncoding.EncodeToString(peerKP.PublicBytes())
	alice.Dispatch(share)

	require.NoError(t, alice.SendMessage("secret hello"))
	assert.Equal(t, protocol.TypeEncryptedMessage, aliceSender.last().Type)
	assert.NotEmpty(t, aliceSender.last().PayloadB64)
}

func TestTunnelFailedResetsToIdle(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)
	require.NoError(t, c.Connect("bob"))
	c.Dispatch(protocol.New(protocol.TypeConnectAccept, "bob"))

	c.Dispatch(protocol.New(protocol.TypeTunnelFailed, protocol.ServerSender))
	assert.Equal(t, StatusIdle, c.Status())
	assert.Empty(t, c.Peer())
}

func TestUserDisconnectedForPeerResetsToIdle(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)
	require.NoError(t, c.Connect("bob"))

	env := protocol.New(protocol.TypeUserDisconnected, protocol.ServerSender)
	env.Username = "bob"
	c.Dispatch(env)

	assert.Equal(t, StatusIdle, c.Status())
}

func TestPendingReportsWithoutMutating(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)
	require.NoError(t, c.Connect("bob"))

	status, peer := c.Pending()
	assert.Equal(t, StatusRequestSent, status)
	assert.Equal(t, "bob", peer)
	assert.Equal(t, StatusRequestSent, c.Status()) // unchanged
}

func TestExitTunnelOnlyFromTunnelActive(t *testing.T) {
	s := &fakeSender{}
	c := New("alice", s)
	assert.Error(t, c.ExitTunnel())
}
