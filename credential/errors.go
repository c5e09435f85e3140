package credential

import (
	"errors"
	"fmt"
)

// ErrNoCredentials is wrapped by every ConfigurationError caused by an empty pool.
var ErrNoCredentials = errors.New("no credentials configured")

// ConfigurationError reports that a provider has no usable credentials.
// It is raised before any call attempt and is never retried.
type ConfigurationError struct {
	Provider string
	Reason   error
}

// NewConfigurationError creates a ConfigurationError for provider.
func NewConfigurationError(provider string, reason error) *ConfigurationError {
	if reason == nil {
		reason = ErrNoCredentials
	}
	return &ConfigurationError{Provider: provider, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("credential configuration: %v", e.Reason)
	}
	return fmt.Sprintf("credential configuration: provider %s: %v", e.Provider, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Reason
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
