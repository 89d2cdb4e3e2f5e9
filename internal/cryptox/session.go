package cryptox

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/oldiegoldie/chatrelay/internal/metrics"
)

// sessionInfo is the literal HKDF info string both peers must use; it is a
// wire/interop commitment and must never change.
const sessionInfo = "oldie-goldie-secure-chat-session"

// SessionKeyLen is the AES-256-GCM key size derived per tunnel.
const SessionKeyLen = 32

// DeriveSessionKey derives the 32-byte AES-256-GCM key from the ECDH shared
// secret, salted with the PSK hash. It is a pure function of (sharedSecret,
// pskHash): both peers compute the same key regardless of which side ran
// the ECDH locally (swapping which peer is "self" does not change salt or
// IKM), satisfying the symmetry invariant.
func DeriveSessionKey(sharedSecret, pskHash []byte) ([]byte, error) {
	if len(sharedSecret) == 0 {
		metrics.CryptoErrors.WithLabelValues("derive").Inc()
		return nil, fmt.Errorf("cryptox: empty shared secret")
	}
	if len(pskHash) == 0 {
		metrics.CryptoErrors.WithLabelValues("derive").Inc()
		return nil, fmt.Errorf("cryptox: empty psk hash")
	}
	r := hkdf.New(sha256.New, sharedSecret, pskHash, []byte(sessionInfo))
	key := make([]byte, SessionKeyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		metrics.CryptoErrors.WithLabelValues("derive").Inc()
		return nil, fmt.Errorf("cryptox: derive session key: %w", err)
	}
	metrics.CryptoOperations.WithLabelValues("derive").Inc()
	return key, nil
}
