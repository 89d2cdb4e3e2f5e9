package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldiegoldie/chatrelay/registry"
)

func TestListenAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8765", listenAddr("local", 8765))
	assert.Equal(t, "0.0.0.0:9000", listenAddr("public", 9000))
}

func TestSeedInvitesDoesNotPanicForBoundAndUnboundTokens(t *testing.T) {
	hub := registry.NewHub(registry.Config{ValidationTimeout: time.Minute, SweepInterval: time.Hour})
	defer hub.Close()

	require.NotPanics(t, func() {
		seedInvites(hub, []string{"alice"}, 2, true)
	})
}
