package app

import (
	"context"

	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/credential"
	"github.com/gaborage/keyrelay/provider"
	"github.com/gaborage/keyrelay/server"
)

// credentialReadiness fails while the rotated Gemini pool is empty. Every
// Gemini action would answer with a configuration error until keys are set.
// A missing VoiceRSS key only affects its own actions and is not checked.
func credentialReadiness(cfg *config.Config) server.ReadinessCheck {
	return func(context.Context) error {
		gemini := cfg.Providers.Gemini
		_, err := credential.NewPool(provider.ProviderGemini, gemini.Keys, gemini.Delimiter)
		return err
	}
}
