package config

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorFormatting(t *testing.T) {
	assert.Equal(t,
		"config_missing: app.name required set APP_NAME env var or add app.name to config.yaml",
		NewMissingFieldError("app.name", "APP_NAME", "app.name").Error())

	assert.Equal(t,
		"config_invalid: log.level bad must be one of: info, debug",
		NewInvalidFieldError("log.level", "bad", []string{"info", "debug"}).Error())

	assert.Equal(t,
		"config_invalid: server.port must be positive",
		NewValidationError("server.port", "must be positive").Error())
}

func TestIsNotConfigured(t *testing.T) {
	notConfigured := NewNotConfiguredError("providers.voicerss.key", EnvVoiceRSSKey, "providers.voicerss.key")

	assert.True(t, IsNotConfigured(notConfigured))
	assert.True(t, IsNotConfigured(fmt.Errorf("wrapped: %w", notConfigured)))
	assert.True(t, IsNotConfigured(ErrNotConfigured))
	assert.False(t, IsNotConfigured(NewValidationError("x", "y")))
	assert.False(t, IsNotConfigured(errors.New("other")))
	assert.False(t, IsNotConfigured(nil))
}

func TestNotConfiguredWarningText(t *testing.T) {
	err := NewNotConfiguredError("providers.gemini.keys", EnvGeminiKeys, "providers.gemini.keys")

	assert.Equal(t,
		"config_not_configured: providers.gemini.keys (optional) to enable: set GEMINI_API_KEYS env var or add providers.gemini.keys to config.yaml",
		err.Error())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.NotErrorIs(t, NewMissingFieldError("providers.voicerss.baseurl", "PROVIDERS_VOICERSS_BASEURL", "providers.voicerss.baseurl"), ErrNotConfigured)
}

func TestConfigErrorDetails(t *testing.T) {
	err := &ConfigError{Category: "invalid", Field: "providers.voicerss.rate", Details: []string{"-10 is slowest", "10 is fastest"}}
	assert.Equal(t, "config_invalid: providers.voicerss.rate -10 is slowest; 10 is fastest", err.Error())
}
