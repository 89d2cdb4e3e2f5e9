package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/oldiegoldie/chatrelay/internal/metrics"
)

// NonceSize and TagSize fix the wire layout nonce(12) || tag(16) || ciphertext(N).
const (
	NonceSize = 12
	TagSize   = 16
)

// Seal encrypts plaintext under key (must be 32 bytes) and returns the
// wire-format payload nonce || tag || ciphertext. Go's cipher.AEAD.Seal
// produces ciphertext||tag contiguously; Seal splits that output and
// reassembles it in the order the wire format commits to.
func Seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("seal").Inc()
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		metrics.CryptoErrors.WithLabelValues("seal").Inc()
		return nil, fmt.Errorf("cryptox: generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil) // ciphertext || tag
	ciphertext := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	out := make([]byte, 0, NonceSize+TagSize+len(ciphertext))
	out = append(out, nonce...)
	out = append(out, tag...)
	out = append(out, ciphertext...)
	metrics.CryptoOperations.WithLabelValues("seal").Inc()
	return out, nil
}

// Open reverses Seal: it expects nonce || tag || ciphertext, reassembles
// Go's expected ciphertext||tag order, and verifies+decrypts.
func Open(key, payload []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("open").Inc()
		return nil, err
	}
	if len(payload) < NonceSize+TagSize {
		metrics.CryptoErrors.WithLabelValues("open").Inc()
		return nil, fmt.Errorf("cryptox: payload too short")
	}

	nonce := payload[:NonceSize]
	tag := payload[NonceSize : NonceSize+TagSize]
	ciphertext := payload[NonceSize+TagSize:]

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		metrics.CryptoErrors.WithLabelValues("open").Inc()
		return nil, fmt.Errorf("cryptox: decrypt: %w", err)
	}
	metrics.CryptoOperations.WithLabelValues("open").Inc()
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != SessionKeyLen {
		return nil, fmt.Errorf("cryptox: key must be %d bytes, got %d", SessionKeyLen, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: new aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptox: new gcm: %w", err)
	}
	return aead, nil
}
