package app

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/logger"
	"github.com/gaborage/keyrelay/server"
)

// Module defines the interface that all application modules must implement.
type Module interface {
	Name() string
	Init(deps *ModuleDeps) error
	RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar)
	Shutdown() error
}

// ModuleDeps contains the dependencies that are injected into each module.
// The telemetry providers are no-ops when observability is disabled.
type ModuleDeps struct {
	Logger         logger.Logger
	Config         *config.Config
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}
