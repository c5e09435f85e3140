package provider

import (
	"errors"
	"fmt"
)

// ErrErrorBody is wrapped when VoiceRSS reports a failure inside a 200 body.
var ErrErrorBody = errors.New("provider reported an error body")

// InvalidResponseError reports an upstream success response that does not
// contain the expected result.
type InvalidResponseError struct {
	Provider string
	Reason   string
}

// NewInvalidResponseError creates an InvalidResponseError.
func NewInvalidResponseError(provider, reason string) *InvalidResponseError {
	return &InvalidResponseError{Provider: provider, Reason: reason}
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("invalid %s response: %s", e.Provider, e.Reason)
}

// IsInvalidResponseError checks if the error is an InvalidResponseError.
func IsInvalidResponseError(err error) bool {
	var target *InvalidResponseError
	return errors.As(err, &target)
}

// UpstreamError reports a failed call to a provider. The message never
// contains the credential used for the call.
type UpstreamError struct {
	Provider string
	Op       string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstreamError checks if the error is an UpstreamError.
func IsUpstreamError(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}
