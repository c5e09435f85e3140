package config

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

const (
	minVoiceRSSRate = -10
	maxVoiceRSSRate = 10
)

var validLogLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}

// Validate checks cfg and returns the first *ConfigError found. Missing
// credentials are not validation failures; see CredentialWarnings.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateApp,
		validateServer,
		validateLog,
		validateGemini,
		validateVoiceRSS,
	}
	for _, validate := range validators {
		if err := validate(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateApp(cfg *Config) error {
	if cfg.App.Name == "" {
		return NewMissingFieldError("app.name", "APP_NAME", "app.name")
	}
	if cfg.App.Version == "" {
		return NewMissingFieldError("app.version", "APP_VERSION", "app.version")
	}

	validEnvs := []string{EnvDevelopment, EnvStaging, EnvProduction}
	if !slices.Contains(validEnvs, cfg.App.Env) {
		return NewInvalidFieldError("app.env", "unknown environment "+strconv.Quote(cfg.App.Env), validEnvs)
	}
	return nil
}

func validateServer(cfg *Config) error {
	s := cfg.Server
	if s.Port <= 0 || s.Port > 65535 {
		return NewValidationError("server.port", "must be 1-65535, got "+strconv.Itoa(s.Port))
	}

	timeouts := []struct {
		field string
		ok    bool
	}{
		{"server.timeout.read", s.Timeout.Read > 0},
		{"server.timeout.write", s.Timeout.Write > 0},
		{"server.timeout.middleware", s.Timeout.Middleware > 0},
		{"server.timeout.shutdown", s.Timeout.Shutdown > 0},
	}
	for _, t := range timeouts {
		if !t.ok {
			return NewValidationError(t.field, "must be positive")
		}
	}

	if s.Path.Generate == "" || !strings.HasPrefix(s.Path.Generate, "/") {
		return NewValidationError("server.path.generate", "must be an absolute path")
	}
	return nil
}

func validateLog(cfg *Config) error {
	if !slices.Contains(validLogLevels, cfg.Log.Level) {
		return NewInvalidFieldError("log.level", "unknown level "+strconv.Quote(cfg.Log.Level), validLogLevels)
	}
	return nil
}

func validateGemini(cfg *Config) error {
	g := cfg.Providers.Gemini
	if g.Delimiter == "" {
		return NewMissingFieldError("providers.gemini.delimiter", "PROVIDERS_GEMINI_DELIMITER", "providers.gemini.delimiter")
	}
	if err := validateBaseURL("providers.gemini.baseurl", g.BaseURL); err != nil {
		return err
	}
	if g.Models.Text == "" || g.Models.Image == "" || g.Models.Speech == "" {
		return NewValidationError("providers.gemini.models", "text, image and speech models are required")
	}
	if g.Timeout <= 0 {
		return NewValidationError("providers.gemini.timeout", "must be positive")
	}
	return nil
}

func validateVoiceRSS(cfg *Config) error {
	v := cfg.Providers.VoiceRSS
	if err := validateBaseURL("providers.voicerss.baseurl", v.BaseURL); err != nil {
		return err
	}
	if v.Rate < minVoiceRSSRate || v.Rate > maxVoiceRSSRate {
		return NewValidationError("providers.voicerss.rate", "must be between -10 and 10")
	}
	if v.Timeout <= 0 {
		return NewValidationError("providers.voicerss.timeout", "must be positive")
	}
	return nil
}

func validateBaseURL(field, raw string) error {
	if raw == "" {
		return NewMissingFieldError(field, strings.ToUpper(strings.ReplaceAll(field, ".", "_")), field)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return NewValidationError(field, "must be an absolute http(s) URL")
	}
	return nil
}

// CredentialWarnings reports providers without credentials. They do not stop
// startup; the requests that need them fail with a configuration error.
func (c *Config) CredentialWarnings() []error {
	var warnings []error
	if strings.Trim(c.Providers.Gemini.Keys, " \t\r\n"+c.Providers.Gemini.Delimiter) == "" {
		warnings = append(warnings, NewNotConfiguredError("providers.gemini.keys", EnvGeminiKeys, "providers.gemini.keys"))
	}
	if strings.TrimSpace(c.Providers.VoiceRSS.Key) == "" {
		warnings = append(warnings, NewNotConfiguredError("providers.voicerss.key", EnvVoiceRSSKey, "providers.voicerss.key"))
	}
	return warnings
}

// IsDevelopment reports whether the app runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == EnvDevelopment
}
