package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/gaborage/keyrelay/config"
	reqtrace "github.com/gaborage/keyrelay/trace"
)

// IAPIError defines the interface for API errors with structured information.
type IAPIError interface {
	ErrorCode() string
	Message() string
	HTTPStatus() int
	Details() map[string]any
}

// APIResponse represents the standardized API response format.
type APIResponse struct {
	Data  any               `json:"data,omitempty"`
	Error *APIErrorResponse `json:"error,omitempty"`
	Meta  map[string]any    `json:"meta"`
}

// APIErrorResponse represents the error portion of an API response.
type APIErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// HandlerFunc is the typed handler signature: decoded request in, result or API error out.
type HandlerFunc[T any, R any] func(request T, ctx HandlerContext) (R, IAPIError)

// HandlerContext provides access to Echo context and configuration when needed.
type HandlerContext struct {
	Echo   echo.Context
	Config *config.Config
}

// Context returns the request context.
func (hc HandlerContext) Context() context.Context {
	return hc.Echo.Request().Context()
}

// RequestBinder decodes JSON request bodies.
type RequestBinder struct{}

// NewRequestBinder creates a new request binder.
func NewRequestBinder() *RequestBinder { return &RequestBinder{} }

// WrapHandler wraps a typed handler into an Echo handler. It handles
// binding, validation, response formatting and request deadlines.
func WrapHandler[T any, R any](
	handlerFunc HandlerFunc[T, R],
	binder *RequestBinder,
	cfg *config.Config,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := c.Request().Context().Err(); err != nil {
			return formatErrorResponse(c, timeoutError(err), cfg)
		}

		var request T
		if err := binder.bindRequest(c, &request); err != nil {
			return formatErrorResponse(c, NewBadRequestError("Invalid request data").WithDetails("error", err.Error()), cfg)
		}

		if err := c.Validate(&request); err != nil {
			vErr := NewBadRequestError("Request validation failed")
			var ve *ValidationError
			if errors.As(err, &ve) {
				_ = vErr.WithDetails("validationErrors", ve.Errors)
			} else {
				_ = vErr.WithDetails("error", err.Error())
			}
			return formatErrorResponse(c, vErr, cfg)
		}

		response, apiErr := handlerFunc(request, HandlerContext{Echo: c, Config: cfg})

		// A handler that outlived the request deadline must not report success.
		if err := c.Request().Context().Err(); err != nil && errors.Is(err, context.DeadlineExceeded) {
			return formatErrorResponse(c, timeoutError(err), cfg)
		}
		if apiErr != nil {
			return formatErrorResponse(c, apiErr, cfg)
		}
		return formatSuccessResponse(c, response)
	}
}

func timeoutError(err error) IAPIError {
	return NewServiceUnavailableError("Request timed out").WithDetails("error", err.Error())
}

// bindRequest decodes a JSON body into target. A missing Content-Type is
// treated as JSON; an empty body leaves target at its zero value.
func (rb *RequestBinder) bindRequest(c echo.Context, target any) error {
	req := c.Request()
	if ct := req.Header.Get(echo.HeaderContentType); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil {
			return fmt.Errorf("invalid content type: %w", err)
		}
		if mt != echo.MIMEApplicationJSON && !strings.HasSuffix(mt, "+json") {
			return fmt.Errorf("unsupported content type %q", mt)
		}
	}
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}

	dec := json.NewDecoder(req.Body)
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to bind JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("failed to bind JSON body: trailing data")
	}
	return nil
}

func responseMeta(c echo.Context) map[string]any {
	return map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"traceId":   getTraceID(c),
	}
}

// formatSuccessResponse formats a successful response with standardized structure.
func formatSuccessResponse(c echo.Context, data any) error {
	ensureTraceParentHeader(c)
	return c.JSON(http.StatusOK, APIResponse{
		Data: data,
		Meta: responseMeta(c),
	})
}

// formatErrorResponse formats an error response with standardized structure.
func formatErrorResponse(c echo.Context, apiErr IAPIError, cfg *config.Config) error {
	errorResp := &APIErrorResponse{
		Code:    apiErr.ErrorCode(),
		Message: apiErr.Message(),
	}

	// Include details only in development environment
	if cfg != nil && isDevelopmentEnv(cfg.App.Env) {
		if details := apiErr.Details(); len(details) > 0 {
			errorResp.Details = details
		}
	}

	ensureTraceParentHeader(c)
	return c.JSON(apiErr.HTTPStatus(), APIResponse{
		Error: errorResp,
		Meta:  responseMeta(c),
	})
}

// getTraceID extracts or generates a trace ID for the request.
func getTraceID(c echo.Context) string {
	if requestID := c.Request().Header.Get(echo.HeaderXRequestID); requestID != "" {
		return requestID
	}
	if resp := c.Response(); resp != nil {
		if requestID := resp.Header().Get(echo.HeaderXRequestID); requestID != "" {
			return requestID
		}
	}
	newID := uuid.New().String()
	c.Response().Header().Set(echo.HeaderXRequestID, newID)
	return newID
}

// ensureTraceParentHeader ensures the response contains a W3C traceparent header.
// It propagates the inbound header when present, otherwise generates a new one.
func ensureTraceParentHeader(c echo.Context) {
	if c.Response().Header().Get(reqtrace.HeaderTraceParent) != "" {
		return
	}
	if tp := c.Request().Header.Get(reqtrace.HeaderTraceParent); tp != "" {
		c.Response().Header().Set(reqtrace.HeaderTraceParent, tp)
		return
	}
	c.Response().Header().Set(reqtrace.HeaderTraceParent, reqtrace.GenerateTraceParent())
}

// RouteRegistrar is what modules register routes through. The server applies
// the base path.
type RouteRegistrar interface {
	Add(method, path string, handler echo.HandlerFunc, middleware ...echo.MiddlewareFunc) *echo.Route
	FullPath(path string) string
}

// HandlerRegistry registers typed handlers.
type HandlerRegistry struct {
	binder *RequestBinder
	cfg    *config.Config
}

// NewHandlerRegistry creates a new handler registry with the given config.
func NewHandlerRegistry(cfg *config.Config) *HandlerRegistry {
	return &HandlerRegistry{
		binder: NewRequestBinder(),
		cfg:    cfg,
	}
}

// RegisterHandler registers a typed handler with the route registrar.
func RegisterHandler[T any, R any](
	hr *HandlerRegistry,
	r RouteRegistrar,
	method, path string,
	handler HandlerFunc[T, R],
) *echo.Route {
	return r.Add(method, path, WrapHandler(handler, hr.binder, hr.cfg))
}

// GET registers a GET handler.
func GET[T any, R any](hr *HandlerRegistry, r RouteRegistrar, path string, handler HandlerFunc[T, R]) *echo.Route {
	return RegisterHandler(hr, r, http.MethodGet, path, handler)
}

// POST registers a POST handler. Other methods on the same path answer 405.
func POST[T any, R any](hr *HandlerRegistry, r RouteRegistrar, path string, handler HandlerFunc[T, R]) *echo.Route {
	return RegisterHandler(hr, r, http.MethodPost, path, handler)
}
