package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("CHAT_RELAY_TEST_VAR", "resolved")

	assert.Equal(t, "resolved", SubstituteEnvVars("${CHAT_RELAY_TEST_VAR}"))
	assert.Equal(t, "fallback", SubstituteEnvVars("${CHAT_RELAY_TEST_VAR_UNSET:fallback}"))
	assert.Equal(t, "", SubstituteEnvVars("${CHAT_RELAY_TEST_VAR_UNSET}"))
	assert.Equal(t, "plain", SubstituteEnvVars("plain"))
}

func TestSubstituteEnvVarsInConfig(t *testing.T) {
	t.Setenv("CHAT_RELAY_TEST_ADDR", ":9999")

	cfg := &Config{}
	cfg.Metrics.Addr = "${CHAT_RELAY_TEST_ADDR}"
	SubstituteEnvVarsInConfig(cfg)

	assert.Equal(t, ":9999", cfg.Metrics.Addr)
}

func TestGetEnvironment(t *testing.T) {
	t.Setenv("CHAT_RELAY_ENV", "")
	t.Setenv("ENVIRONMENT", "")
	assert.Equal(t, "development", GetEnvironment())

	t.Setenv("CHAT_RELAY_ENV", "Production")
	assert.Equal(t, "production", GetEnvironment())
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())
}
