package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oldiegoldie/chatrelay/internal/metrics"
)

// Now is overridable in tests; production code leaves it as time.Now.
var Now = time.Now

func timestamp() string {
	return Now().Format(time.RFC3339Nano)
}

// New builds an envelope with protocol_version and timestamp already filled.
func New(typ Type, sender string) Envelope {
	return Envelope{
		ProtocolVersion: ProtocolVersion,
		Type:            typ,
		Sender:          sender,
		Timestamp:       timestamp(),
	}
}

// Encode marshals an envelope to its wire JSON form.
func Encode(e Envelope) ([]byte, error) {
	if e.ProtocolVersion == "" {
		e.ProtocolVersion = ProtocolVersion
	}
	if e.Timestamp == "" {
		e.Timestamp = timestamp()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode: %w", err)
	}
	return b, nil
}

// malformed is the synthetic envelope substituted for input Decode cannot
// parse as JSON, matching the original's decode_message behavior of never
// raising on bad input.
func malformed() Envelope {
	return Envelope{
		ProtocolVersion: ProtocolVersion,
		Type:            TypeSystemMessage,
		Sender:          "System",
		Message:         "[Malformed Message]",
		Timestamp:       timestamp(),
	}
}

// Decode parses raw wire bytes into an Envelope. Malformed JSON is never
// returned as an error: it is coerced into a synthetic system_message so a
// single bad frame cannot tear down a connection (spec's envelope-error
// policy).
func Decode(raw []byte) Envelope {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		metrics.MalformedMessages.Inc()
		return malformed()
	}
	return e
}

// EncodeChat builds and encodes a plain chat_message envelope, mirroring
// the original's encode_message helper for the unencrypted case.
func EncodeChat(sender, message string) ([]byte, error) {
	if sender == "" || message == "" {
		return nil, fmt.Errorf("protocol: sender and message must be non-empty")
	}
	if len(sender) > MaxSenderLen {
		return nil, fmt.Errorf("protocol: sender exceeds %d characters", MaxSenderLen)
	}
	if len(message) > MaxMessageLen {
		return nil, fmt.Errorf("protocol: message exceeds %d characters", MaxMessageLen)
	}
	e := New(TypeChatMessage, sender)
	e.Message = message
	return Encode(e)
}

// EncodeEncrypted wraps an already-encrypted payload (nonce||tag||ciphertext,
// see internal/cryptox) as an encrypted_message envelope addressed to target.
func EncodeEncrypted(sender, target, payloadB64 string) ([]byte, error) {
	e := New(TypeEncryptedMessage, sender)
	e.Target = target
	e.PayloadB64 = payloadB64
	return Encode(e)
}
