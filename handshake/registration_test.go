package handshake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldiegoldie/chatrelay/internal/protocol"
	"github.com/oldiegoldie/chatrelay/registry"
)

type scriptedReader struct {
	envs []protocol.Envelope
	i    int
}

func (s *scriptedReader) ReadEnvelope(ctx context.Context) (protocol.Envelope, error) {
	if s.i >= len(s.envs) {
		return protocol.Envelope{}, errors.New("no more scripted envelopes")
	}
	e := s.envs[s.i]
	s.i++
	return e, nil
}

func registerEnv(username string) protocol.Envelope {
	e := protocol.New(protocol.TypeRegister, username)
	e.Username = username
	return e
}

func TestRegisterSuccess(t *testing.T) {
	hub := newTestHub(t)
	conn := &fakeConn{}
	r := &scriptedReader{envs: []protocol.Envelope{registerEnv("alice")}}

	username, err := Register(context.Background(), r, conn, hub, nil)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
	assert.True(t, hub.IsRegistered("alice"))
	assert.Equal(t, protocol.TypeRegister, conn.last().Type)
}

func TestRegisterInvalidUsernameCountsAttempt(t *testing.T) {
	hub := newTestHub(t)
	conn := &fakeConn{}
	r := &scriptedReader{envs: []protocol.Envelope{
		registerEnv("Not-Valid"),
		registerEnv("Not-Valid"),
		registerEnv("Not-Valid"),
		registerEnv("Not-Valid"),
	}}

	_, err := Register(context.Background(), r, conn, hub, nil)
	assert.Error(t, err)
	assert.Len(t, conn.sent, 4)
	for _, e := range conn.sent {
		assert.Equal(t, protocol.TypeRegisterError, e.Type)
	}
}

func TestRegisterTakenDoesNotCountAttempt(t *testing.T) {
	hub := newTestHub(t)
	first := &fakeConn{}
	hub.Register("alice", first)

	conn := &fakeConn{}
	r := &scriptedReader{envs: []protocol.Envelope{
		registerEnv("alice"),
		registerEnv("bob"),
	}}

	username, err := Register(context.Background(), r, conn, hub, nil)
	require.NoError(t, err)
	assert.Equal(t, "bob", username)
}

func TestRegisterBlockedIsRejected(t *testing.T) {
	hub := newTestHub(t)
	hub.Block("alice")

	conn := &fakeConn{}
	r := &scriptedReader{envs: []protocol.Envelope{
		registerEnv("alice"),
		registerEnv("bob"),
	}}

	username, err := Register(context.Background(), r, conn, hub, nil)
	require.NoError(t, err)
	assert.Equal(t, "bob", username)
}

func TestRegisterWrongBoundTokenIsRejected(t *testing.T) {
	hub := newTestHub(t)
	conn := &fakeConn{}
	invite := &registry.Invite{Token: "tok", BoundUsername: "alice"}
	r := &scriptedReader{envs: []protocol.Envelope{
		registerEnv("bob"),
		registerEnv("alice"),
	}}

	username, err := Register(context.Background(), r, conn, hub, invite)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestRegisterTimeoutOnNoInput(t *testing.T) {
	hub := newTestHub(t)
	conn := &fakeConn{}
	r := &scriptedReader{}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Register(ctx, r, conn, hub, nil)
	assert.Error(t, err)
}
