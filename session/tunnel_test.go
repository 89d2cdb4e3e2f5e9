package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTunnelSealOpenRoundTrip(t *testing.T) {
	shared := []byte("shared-secret-bytes-000000000000")
	psk := []byte("psk-hash-bytes-00000000000000000")

	tun, err := NewTunnel("bob", shared, psk, Config{})
	require.NoError(t, err)

	ct, err := tun.Seal([]byte("hi bob"))
	require.NoError(t, err)

	pt, err := tun.Open(ct)
	require.NoError(t, err)
	assert.Equal(t, "hi bob", string(pt))
	assert.Equal(t, 2, tun.MessageCount())
}

func TestTunnelSymmetricAcrossPeers(t *testing.T) {
	shared := []byte("shared-secret-bytes-000000000000")
	psk := []byte("psk-hash-bytes-00000000000000000")

	alice, err := NewTunnel("bob", shared, psk, Config{})
	require.NoError(t, err)
	bob, err := NewTunnel("alice", shared, psk, Config{})
	require.NoError(t, err)

	ct, err := alice.Seal([]byte("hello"))
	require.NoError(t, err)
	pt, err := bob.Open(ct)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pt))
}

func TestTunnelCloseZeroesKey(t *testing.T) {
	tun, err := NewTunnel("bob", []byte("shared"), []byte("psk"), Config{})
	require.NoError(t, err)
	require.NoError(t, tun.Close())
	assert.Equal(t, make([]byte, len(tun.sessionKey)), tun.sessionKey)

	_, err = tun.Seal([]byte("x"))
	assert.Error(t, err)
}

func TestTunnelExpiry(t *testing.T) {
	tun, err := NewTunnel("bob", []byte("shared"), []byte("psk"), Config{MaxAge: time.Millisecond})
	require.NoError(t, err)
	assert.False(t, tun.IsExpired())
	time.Sleep(5 * time.Millisecond)
	assert.True(t, tun.IsExpired())
}
