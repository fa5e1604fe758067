package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FREE_API_LIMIT", "")
	t.Setenv("LLM_TIMEOUT", "")
	t.Setenv("LLM_PROVIDER", "openai")

	cfg := Load()

	assert.Equal(t, 5, cfg.Billing.FreeApiLimit)
	assert.Equal(t, 60*time.Second, cfg.Ai.Timeout)
	assert.Equal(t, "openai", cfg.Ai.LLMProvider)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FREE_API_LIMIT", "10")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("MIDTRANS_IS_PRODUCTION", "true")
	t.Setenv("APP_PORT", "8080")

	cfg := Load()

	assert.Equal(t, 10, cfg.Billing.FreeApiLimit)
	assert.Equal(t, 15*time.Second, cfg.Ai.Timeout)
	assert.True(t, cfg.Keys.MidtransIsProduction)
	assert.Equal(t, "8080", cfg.App.Port)
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "2m", want: 2 * time.Minute},
		{name: "bare seconds", value: "30", want: 30 * time.Second},
		{name: "garbage falls back", value: "soon", want: time.Minute},
		{name: "negative falls back", value: "-5s", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvAsDuration("TEST_DURATION", time.Minute))
		})
	}
}
