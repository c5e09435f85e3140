package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured marks a provider whose credentials are absent. The
// service still starts; only requests needing that provider fail.
var ErrNotConfigured = errors.New("not configured")

// ConfigError describes one bad or absent configuration key and how to fix
// it, e.g.
//
//	config_missing: providers.voicerss.baseurl required set PROVIDERS_VOICERSS_BASEURL env var or add providers.voicerss.baseurl to config.yaml
//	config_not_configured: providers.gemini.keys (optional) to enable: set GEMINI_API_KEYS env var or add providers.gemini.keys to config.yaml
//
//nolint:revive // the package name alone reads poorly at call sites
type ConfigError struct {
	Category string   // "missing", "invalid" or "not_configured"
	Field    string   // key path, e.g. "providers.gemini.delimiter"
	Message  string   // lowercase
	Action   string   // what the operator should set
	Details  []string // extra hints, joined with "; "
}

func (e *ConfigError) Error() string {
	parts := make([]string, 0, 5)
	if e.Category != "" {
		parts = append(parts, "config_"+e.Category+":")
	}
	for _, p := range []string{e.Field, e.Message, e.Action} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(e.Details) > 0 {
		parts = append(parts, strings.Join(e.Details, "; "))
	}
	return strings.Join(parts, " ")
}

// Unwrap lets a not-configured warning match ErrNotConfigured.
func (e *ConfigError) Unwrap() error {
	if e.Category == categoryNotConfigured {
		return ErrNotConfigured
	}
	return nil
}

const (
	categoryMissing       = "missing"
	categoryInvalid       = "invalid"
	categoryNotConfigured = "not_configured"
)

// NewMissingFieldError reports a required key with no value.
func NewMissingFieldError(field, envVar, yamlPath string) *ConfigError {
	action := fmt.Sprintf("set %s env var or add %s to config.yaml", envVar, yamlPath)
	return &ConfigError{
		Category: categoryMissing,
		Field:    field,
		Message:  "required",
		Action:   action,
	}
}

// NewInvalidFieldError reports a value outside validOptions, such as an
// unknown app.env or log.level.
func NewInvalidFieldError(field, message string, validOptions []string) *ConfigError {
	err := &ConfigError{
		Category: categoryInvalid,
		Field:    field,
		Message:  message,
	}

	if len(validOptions) > 0 {
		err.Action = fmt.Sprintf("must be one of: %s", strings.Join(validOptions, ", "))
	}

	return err
}

// NewNotConfiguredError is the startup warning for a provider without
// credentials. It is returned by CredentialWarnings, never by Validate.
func NewNotConfiguredError(feature, envVar, yamlPath string) *ConfigError {
	action := fmt.Sprintf("to enable: set %s env var or add %s to config.yaml", envVar, yamlPath)
	return &ConfigError{
		Category: categoryNotConfigured,
		Field:    feature,
		Message:  "(optional)",
		Action:   action,
	}
}

// IsNotConfigured reports whether err is a missing-credentials warning.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// NewValidationError reports a value that is present but unusable, such as
// a non-positive provider timeout or a relative base URL.
func NewValidationError(field, message string) *ConfigError {
	return &ConfigError{
		Category: categoryInvalid,
		Field:    field,
		Message:  message,
	}
}
