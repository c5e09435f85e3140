package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gaborage/keyrelay/logger"
	reqtrace "github.com/gaborage/keyrelay/trace"
)

// LoggerConfig configures the request logging middleware.
type LoggerConfig struct {
	// HealthPath and ReadyPath are probe endpoints excluded from logging.
	HealthPath string
	ReadyPath  string

	// SlowRequestThreshold marks successful requests slower than this with
	// result_code WARN. Zero disables the check.
	SlowRequestThreshold time.Duration
}

// LoggerWithConfig returns the request logging middleware. It emits one
// action log (log.type=action) per request, unless a WARN+ log was already
// written while the request was served; those logs then stand for the request.
// Provider attempt failures are such logs.
func LoggerWithConfig(log logger.Logger, cfg LoggerConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqCtx := newRequestLogContext()
			c.Set(RequestLogContextKey, reqCtx)

			ctxWithHook := logger.WithSeverityHook(c.Request().Context(), reqCtx.escalateSeverity)
			c.SetRequest(c.Request().WithContext(ctxWithHook))

			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			if path == cfg.HealthPath || path == cfg.ReadyPath {
				return next(c)
			}

			err := next(c)

			latency := time.Since(reqCtx.getStartTime())
			status := responseStatus(c, err)
			updateSeverityFromStatus(reqCtx, status, err)

			if !reqCtx.hadExplicitWarningOccurred() {
				logActionSummary(c, log, cfg, latency, status, err)
			}
			return err
		}
	}
}

// responseStatus returns the status the client will see. Errors returned up
// the chain are rendered later by the central error handler.
func responseStatus(c echo.Context, err error) int {
	if err == nil || c.Response().Committed {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	var apiErr IAPIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus()
	}
	if errors.Is(err, http.ErrHandlerTimeout) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func updateSeverityFromStatus(reqCtx *requestLogContext, status int, err error) {
	switch {
	case status >= http.StatusInternalServerError || (err != nil && status == 0):
		reqCtx.escalateSeverityFromStatus(zerolog.ErrorLevel)
	case status >= http.StatusBadRequest:
		reqCtx.escalateSeverityFromStatus(zerolog.WarnLevel)
	}
}

// logActionSummary emits the request summary using OpenTelemetry HTTP
// attribute names.
func logActionSummary(
	c echo.Context,
	log logger.Logger,
	cfg LoggerConfig,
	latency time.Duration,
	status int,
	err error,
) {
	ctx := c.Request().Context()
	logLevel, resultCode := determineSeverity(status, latency, cfg.SlowRequestThreshold, err)
	event := createLogEvent(log.WithContext(ctx), logLevel)
	if err != nil {
		event = event.Err(err)
	}

	traceparent := ""
	if resp := c.Response(); resp != nil {
		traceparent = resp.Header().Get(reqtrace.HeaderTraceParent)
	}

	method := c.Request().Method
	uri := c.Request().URL.Path

	event.
		Str("log.type", "action").
		Str("request_id", safeGetRequestID(c)).
		Str("correlation_id", getTraceID(c)).
		Str("http.request.method", method).
		Int("http.response.status_code", status).
		Int64("http.server.request.duration", latency.Nanoseconds()).
		Str("url.path", uri).
		Str("http.route", c.Path()).
		Str("client.address", c.RealIP()).
		Str("user_agent.original", c.Request().UserAgent()).
		Str("result_code", resultCode).
		Int64("upstream_calls", logger.GetUpstreamCounter(ctx)).
		Int64("upstream_elapsed", logger.GetUpstreamElapsed(ctx)).
		Str("traceparent", traceparent).
		Msg(createActionMessage(method, uri, latency, status))
}

const (
	levelError = "error"
	levelWarn  = "warn"
	levelInfo  = "info"
)

// determineSeverity returns the log level and result_code for a request.
// Slow successful requests keep INFO level with result_code WARN.
func determineSeverity(status int, latency, threshold time.Duration, err error) (logLevel, resultCode string) {
	switch {
	case status >= http.StatusInternalServerError || (err != nil && status == 0):
		return levelError, "ERROR"
	case status >= http.StatusBadRequest:
		return levelWarn, "WARN"
	case threshold > 0 && latency > threshold:
		return levelInfo, "WARN"
	default:
		return levelInfo, "INFO"
	}
}

func createLogEvent(log logger.Logger, level string) logger.LogEvent {
	switch level {
	case levelError:
		return log.Error()
	case levelWarn:
		return log.Warn()
	default:
		return log.Info()
	}
}

// createActionMessage renders e.g. "POST /api/generate completed in 1.2s with status 2xx".
func createActionMessage(method, path string, latency time.Duration, status int) string {
	return method + " " + path + " completed in " + latency.String() + " with status " + strconv.Itoa(status/100) + "xx"
}
