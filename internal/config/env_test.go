package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "PORT", "SECRET_KEY", "SHAREPOINT_URL",
		"MOMENTUS_BASE_URL", "BROWSER_HEADLESS", "BROWSER_TIMEOUT_MS", "BOOKING_HISTORY_FILE",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadFromEnv()

	assert.Equal(t, "gpt-4", cfg.OpenAIModel)
	assert.Equal(t, 0.1, cfg.OpenAITemperature)
	assert.Equal(t, 500, cfg.OpenAIMaxTokens)
	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.Equal(t, "https://utexas.momentus.io/", cfg.MomentusBaseURL)
	assert.True(t, cfg.BrowserHeadless)
	assert.Equal(t, 15*time.Second, cfg.BrowserTimeout)
	assert.Equal(t, "booking_history.json", cfg.HistoryFile)
	assert.Equal(t, cfg.MomentusBaseURL, cfg.EntryURL())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PORT", "8081")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("OPENAI_TEMPERATURE", "0.3")
	t.Setenv("SHAREPOINT_URL", "https://utexas.sharepoint.com/sites/rooms")

	cfg := LoadFromEnv()

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, 8081, cfg.HTTPPort)
	assert.False(t, cfg.BrowserHeadless)
	assert.Equal(t, 0.3, cfg.OpenAITemperature)
	assert.Equal(t, "https://utexas.sharepoint.com/sites/rooms", cfg.EntryURL())
}

func TestLoadFromEnv_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("OPENAI_TEMPERATURE", "warm")

	cfg := LoadFromEnv()

	assert.Equal(t, 5000, cfg.HTTPPort)
	assert.Equal(t, 0.1, cfg.OpenAITemperature)
}

func TestValidate(t *testing.T) {
	cfg := &Config{SecretKey: defaultSecretKey}
	assert.Len(t, cfg.Validate(), 2)

	cfg = &Config{OpenAIAPIKey: "sk-test", SecretKey: "something-long"}
	assert.Empty(t, cfg.Validate())
}
