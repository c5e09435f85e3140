package generate

import (
	"errors"
	"net/http"

	"github.com/gaborage/keyrelay/credential"
	"github.com/gaborage/keyrelay/provider"
	"github.com/gaborage/keyrelay/rotation"
	"github.com/gaborage/keyrelay/server"
)

// Error codes returned to clients.
const (
	CodeConfiguration           = "CONFIGURATION_ERROR"
	CodeUpstreamUnavailable     = "UPSTREAM_UNAVAILABLE"
	CodeInvalidUpstreamResponse = "INVALID_UPSTREAM_RESPONSE"
)

// toAPIError maps a failed provider call to the client-facing error. Messages
// stay generic; the cause is only exposed through details, which the server
// renders in development.
func toAPIError(err error) server.IAPIError {
	var cfgErr *credential.ConfigurationError
	if errors.As(err, &cfgErr) {
		return server.NewBaseAPIError(CodeConfiguration, "Server configuration error", http.StatusInternalServerError).
			WithDetails("provider", cfgErr.Provider)
	}

	var invalid *provider.InvalidResponseError
	if errors.As(err, &invalid) {
		return server.NewBadGatewayError(CodeInvalidUpstreamResponse, "Upstream provider returned an unusable response").
			WithDetails("provider", invalid.Provider).
			WithDetails("reason", invalid.Reason)
	}

	var aggErr *rotation.AggregatedError
	if errors.As(err, &aggErr) {
		apiErr := server.NewBadGatewayError(CodeUpstreamUnavailable, "Upstream provider unavailable").
			WithDetails("provider", aggErr.Provider).
			WithDetails("attempts", aggErr.Attempts)
		if aggErr.Last != nil {
			apiErr.WithDetails("lastError", aggErr.Last.Error())
		}
		return apiErr
	}

	var upErr *provider.UpstreamError
	if errors.As(err, &upErr) {
		return server.NewBadGatewayError(CodeUpstreamUnavailable, "Upstream provider unavailable").
			WithDetails("provider", upErr.Provider).
			WithDetails("lastError", upErr.Error())
	}

	return server.NewInternalServerError("")
}
