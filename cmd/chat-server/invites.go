package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oldiegoldie/chatrelay/registry"
)

// DefaultInviteExpiry is spec.md §6's "optional expiry (default 10 min)".
const DefaultInviteExpiry = 10 * time.Minute

// seedInvites creates one bound token per entry in bind, plus
// tokenCount-len(bind) additional unbound tokens (tokenCount itself
// already validated as >= len(bind) by the caller), and prints each one
// so an operator can hand it to the corresponding user out of band.
func seedInvites(hub *registry.Hub, bind []string, tokenCount int, noExpiry bool) {
	expiryFor := func() *time.Time {
		if noExpiry {
			return nil
		}
		t := time.Now().Add(DefaultInviteExpiry)
		return &t
	}

	for _, username := range bind {
		token := uuid.NewString()
		hub.AddInvite(token, username, expiryFor())
		fmt.Printf("invite token for %q: %s\n", username, token)
	}

	unbound := tokenCount - len(bind)
	for i := 0; i < unbound; i++ {
		token := uuid.NewString()
		hub.AddInvite(token, "", expiryFor())
		fmt.Printf("unbound invite token: %s\n", token)
	}
}
