package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"

	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/logger"
	"github.com/gaborage/keyrelay/server/internal/tracking"
)

const defaultBodyLimit = "10M"

// SetupMiddlewares configures and registers all HTTP middlewares for the Echo server.
func SetupMiddlewares(e *echo.Echo, log logger.Logger, cfg *config.Config) {
	e.Use(middleware.RequestID())

	// Spans and HTTP metrics only when telemetry is on; the global providers
	// are no-ops otherwise.
	if cfg.Observability.Enabled {
		e.Use(otelecho.Middleware(cfg.App.Name, otelecho.WithSkipper(probeSkipper(cfg))))
		e.Use(tracking.HTTPMetrics(otel.GetMeterProvider(), tracking.HTTPMetricsConfig{Skipper: probeSkipper(cfg)}))
	}

	// Inject trace context into request context for outbound propagation
	e.Use(TraceContext())

	e.Use(UpstreamStats())

	e.Use(CORS(cfg.Server.CORS.Origins))

	e.Use(LoggerWithConfig(log, LoggerConfig{
		HealthPath:           fullProbePath(cfg, cfg.Server.Path.Health),
		ReadyPath:            fullProbePath(cfg, cfg.Server.Path.Ready),
		SlowRequestThreshold: defaultSlowRequestThreshold,
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().
				Err(err).
				Str("request_id", safeGetRequestID(c)).
				Bytes("stack", stack).
				Msg("Panic recovered")
			return err
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		HSTSMaxAge:            3600,
		ContentSecurityPolicy: "default-src 'self'",
	}))

	// Image prompts and audio payloads stay well under this.
	e.Use(middleware.BodyLimit(defaultBodyLimit))

	e.Use(Timeout(cfg.Server.Timeout.Middleware))

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))

	e.Use(Timing())
}

func fullProbePath(cfg *config.Config, route string) string {
	return joinPath(normalizeBasePath(cfg.Server.Path.Base), normalizeRoutePath(route, "/"))
}

func probeSkipper(cfg *config.Config) func(c echo.Context) bool {
	health := fullProbePath(cfg, cfg.Server.Path.Health)
	ready := fullProbePath(cfg, cfg.Server.Path.Ready)
	return func(c echo.Context) bool {
		p := c.Request().URL.Path
		return p == health || p == ready
	}
}
