// Package http provides the outbound HTTP client used for provider calls:
// request/response interceptors, default headers, per-request timeouts,
// typed client errors and OpenTelemetry client spans.
//
// The client never retries. A failed call is reported once to the caller,
// which decides whether another credential should be tried.
//
// Every call increments the per-request upstream counter and elapsed time
// held in the context (see logger.WithUpstreamCounter) and propagates the
// request ID and W3C trace headers.
package http
