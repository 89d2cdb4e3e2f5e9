package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e := New(TypeChatMessage, "alice")
	e.Message = "hi"
	e.Target = "bob"

	raw, err := Encode(e)
	require.NoError(t, err)

	got := Decode(raw)
	assert.Equal(t, e.ProtocolVersion, got.ProtocolVersion)
	assert.Equal(t, e.Type, got.Type)
	assert.Equal(t, e.Sender, got.Sender)
	assert.Equal(t, e.Message, got.Message)
	assert.Equal(t, e.Target, got.Target)
}

func TestDecodeMalformed(t *testing.T) {
	got := Decode([]byte("{not json"))
	assert.Equal(t, TypeSystemMessage, got.Type)
	assert.Equal(t, "System", got.Sender)
	assert.Equal(t, "[Malformed Message]", got.Message)
}

func TestEncodeChatValidation(t *testing.T) {
	tests := []struct {
		name    string
		sender  string
		message string
		wantErr bool
	}{
		{"ok", "alice", "hello", false},
		{"empty sender", "", "hello", true},
		{"empty message", "alice", "", true},
		{"sender too long", stringOfLen(51), "hello", true},
		{"message too long", "alice", stringOfLen(501), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeChat(tt.sender, tt.message)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidUsername(t *testing.T) {
	cases := map[string]bool{
		"alice":   true,
		"bob2":    true,
		"":        false,
		"Alice":   false,
		"2bob":    false,
		"server":  false,
		"and":     false,
		"return":  false,
		"al ice":  false,
		"al-ice":  false,
		stringOfLen(51): false,
	}
	for u, want := range cases {
		assert.Equalf(t, want, ValidUsername(u), "username=%q", u)
	}
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
