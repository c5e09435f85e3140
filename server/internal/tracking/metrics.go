// Package tracking records HTTP server metrics that the tracing middleware
// does not cover: in-flight requests and handler outcomes per route.
package tracking

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/gaborage/keyrelay/observability"
)

const (
	meterName = "github.com/gaborage/keyrelay/server"

	metricActiveRequests = "http.server.active_requests"
	metricResponses      = "keyrelay.http.responses"

	attrHTTPRequestMethod  = "http.request.method"
	attrHTTPResponseStatus = "http.response.status_code"
	attrHTTPRoute          = "http.route"
	attrURLScheme          = "url.scheme"
	attrErrorType          = "error.type"
)

// HTTPMetricsConfig holds configuration for HTTP metrics middleware.
type HTTPMetricsConfig struct {
	// Skipper excludes requests such as health probes.
	Skipper func(c echo.Context) bool
}

type httpMetrics struct {
	config    HTTPMetricsConfig
	active    metric.Int64UpDownCounter
	responses metric.Int64Counter
}

// HTTPMetrics returns middleware that records in-flight requests and a
// response counter per route and status class. Instrument creation failures
// fall back to no-op instruments.
func HTTPMetrics(mp metric.MeterProvider, config HTTPMetricsConfig) echo.MiddlewareFunc {
	meter := mp.Meter(meterName)

	active, err := meter.Int64UpDownCounter(metricActiveRequests,
		metric.WithDescription("Number of active HTTP server requests"),
		metric.WithUnit("{request}"))
	if err != nil {
		active, _ = noop.Meter{}.Int64UpDownCounter(metricActiveRequests)
	}
	responses, err := observability.CreateCounter(meter, metricResponses, "HTTP responses by route and status")
	if err != nil {
		responses, _ = noop.Meter{}.Int64Counter(metricResponses)
	}

	h := &httpMetrics{config: config, active: active, responses: responses}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return h.handle(c, next)
		}
	}
}

func (h *httpMetrics) handle(c echo.Context, next echo.HandlerFunc) error {
	if h.config.Skipper != nil && h.config.Skipper(c) {
		return next(c)
	}

	req := c.Request()
	ctx := req.Context()
	base := metric.WithAttributes(
		attribute.String(attrHTTPRequestMethod, req.Method),
		attribute.String(attrURLScheme, extractScheme(c)),
	)

	h.active.Add(ctx, 1, base)
	err := next(c)
	h.active.Add(ctx, -1, base)

	status := c.Response().Status
	if err != nil {
		// The central error handler has not written the response yet.
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
		}
	}
	h.responses.Add(ctx, 1, metric.WithAttributes(buildResponseAttributes(req.Method, status, c.Path(), err)...))
	return err
}

func normalizeRoute(route string) string {
	if route == "" {
		return "unknown"
	}
	return route
}

func buildResponseAttributes(method string, statusCode int, route string, err error) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(attrHTTPRequestMethod, method),
		attribute.Int(attrHTTPResponseStatus, statusCode),
		attribute.String(attrHTTPRoute, normalizeRoute(route)),
	}
	if errorType := classifyHTTPError(statusCode, err); errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}
	return attrs
}

// extractScheme prefers X-Forwarded-Proto for proxied requests.
func extractScheme(c echo.Context) string {
	if proto := c.Request().Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if c.Request().TLS != nil {
		return "https"
	}
	return "http"
}

// classifyHTTPError returns the status code for 4xx/5xx, "handler_error" for
// an error on an otherwise successful status, and "" for success.
func classifyHTTPError(statusCode int, err error) string {
	if statusCode >= 400 {
		return strconv.Itoa(statusCode)
	}
	if err != nil {
		return "handler_error"
	}
	return ""
}
