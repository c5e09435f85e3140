// Package server provides the HTTP server built on Echo: middleware,
// the response envelope, typed handlers and health probes.
package server

import (
	"context"
	goerrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/logger"
)

// ReadinessCheck reports whether the service can take traffic.
type ReadinessCheck func(ctx context.Context) error

// Server represents an HTTP server instance with Echo framework.
// It manages server lifecycle, configuration, and request handling.
type Server struct {
	echo        *echo.Echo
	cfg         *config.Config
	logger      logger.Logger
	basePath    string
	healthRoute string
	readyRoute  string
	readiness   []ReadinessCheck

	mu         sync.Mutex
	httpServer *http.Server
	closed     bool
}

// normalizeBasePath turns "", "/" and "api/" style values into "" or "/api".
func normalizeBasePath(basePath string) string {
	basePath = strings.TrimRight(basePath, "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return basePath
}

// normalizeRoutePath ensures a route path starts with "/" and handles empty paths
func normalizeRoutePath(route, defaultRoute string) string {
	if route == "" {
		route = defaultRoute
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return route
}

// buildFullPath combines base path with route path
func (s *Server) buildFullPath(route string) string {
	return joinPath(s.basePath, route)
}

// New creates a new HTTP server instance with the given configuration and logger.
// It initializes Echo with middlewares, error handling, and health check endpoints.
func New(cfg *config.Config, log logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		customErrorHandler(err, c, cfg, log)
	}
	e.Validator = NewValidator()

	SetupMiddlewares(e, log, cfg)

	basePath := normalizeBasePath(cfg.Server.Path.Base)
	healthRoute := normalizeRoutePath(cfg.Server.Path.Health, "/health")
	readyRoute := normalizeRoutePath(cfg.Server.Path.Ready, "/ready")

	s := &Server{
		echo:        e,
		cfg:         cfg,
		logger:      log,
		basePath:    basePath,
		healthRoute: healthRoute,
		readyRoute:  readyRoute,
	}

	healthPath := s.buildFullPath(healthRoute)
	readyPath := s.buildFullPath(readyRoute)

	e.GET(healthPath, s.healthCheck)
	e.GET(readyPath, s.readyCheck)

	log.Debug().
		Str("base_path", basePath).
		Str("health_path", healthPath).
		Str("ready_path", readyPath).
		Msg("Server paths configured")

	return s
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ServeHTTP lets the server run behind any net/http entry point.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// ModuleGroup returns a route registrar with the base path applied.
func (s *Server) ModuleGroup() RouteRegistrar {
	return newModuleRoutes(s.echo, s.basePath)
}

// AddReadinessCheck adds a check consulted by the readiness probe.
func (s *Server) AddReadinessCheck(check ReadinessCheck) {
	if check != nil {
		s.readiness = append(s.readiness, check)
	}
}

// Start starts the HTTP server and blocks until it is shut down or fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.logger.Info().
		Str("service", s.cfg.App.Name).
		Str("version", s.cfg.App.Version).
		Str("env", s.cfg.App.Env).
		Str("address", addr).
		Msg("Starting server...")

	server := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadTimeout:       s.cfg.Server.Timeout.Read,
		ReadHeaderTimeout: s.cfg.Server.Timeout.Read,
		WriteTimeout:      s.cfg.Server.Timeout.Write,
		IdleTimeout:       s.cfg.Server.Timeout.Idle,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.httpServer = server
	s.mu.Unlock()

	return server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server with the given context.
// It waits for existing connections to finish within the context timeout.
// A server shut down before Start never starts.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	server := s.httpServer
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) readyCheck(c echo.Context) error {
	for _, check := range s.readiness {
		if err := check(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "not ready",
				"error":  err.Error(),
				"time":   time.Now().Unix(),
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func customErrorHandler(err error, c echo.Context, cfg *config.Config, log logger.Logger) {
	if c.Response().Committed {
		return
	}

	// If this is a structured API error, reuse its fields
	var apiErr IAPIError
	if goerrors.As(err, &apiErr) {
		_ = formatErrorResponse(c, apiErr, cfg)
		return
	}

	if goerrors.Is(err, context.DeadlineExceeded) {
		_ = formatErrorResponse(c, timeoutError(err), cfg)
		return
	}

	// Map echo.HTTPError and untyped errors to standardized envelope
	status := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	if goerrors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		}
	}

	if status == http.StatusMethodNotAllowed {
		_ = formatErrorResponse(c, NewMethodNotAllowedError(c.Request().Method), cfg)
		return
	}

	// Hide internal details for 500s outside debug mode
	if !cfg.App.Debug && status == http.StatusInternalServerError {
		msg = "An error occurred while processing your request"
	}

	if status >= http.StatusInternalServerError {
		log.WithContext(c.Request().Context()).Error().
			Err(err).
			Str("request_id", safeGetRequestID(c)).
			Msg("Unhandled error")
	}

	base := NewBaseAPIError(statusToErrorCode(status), msg, status)
	if isDevelopmentEnv(cfg.App.Env) {
		_ = base.WithDetails("error", err.Error())
	}

	_ = formatErrorResponse(c, base, cfg)
}

func statusToErrorCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	case http.StatusBadGateway:
		return "BAD_GATEWAY"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
			return "CLIENT_ERROR"
		}
		return "INTERNAL_ERROR"
	}
}
