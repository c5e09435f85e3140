// Package app wires configuration, logging, telemetry and the HTTP server
// into a runnable application and drives the module lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gaborage/keyrelay/config"
	"github.com/gaborage/keyrelay/logger"
	"github.com/gaborage/keyrelay/observability"
	"github.com/gaborage/keyrelay/server"
)

// App represents the main application instance.
type App struct {
	cfg           *config.Config
	server        ServerRunner
	logger        logger.Logger
	registry      *ModuleRegistry
	observability observability.Provider
	signalHandler SignalHandler

	prepareOnce sync.Once
	prepareErr  error
}

// New loads configuration and creates an application with default options.
func New() (*App, error) {
	return NewWithOptions(nil)
}

// NewWithOptions creates an application. Nil options, or nil fields, fall
// back to the defaults.
func NewWithOptions(opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}

	cfg := opts.Config
	if cfg == nil {
		loader := opts.ConfigLoader
		if loader == nil {
			loader = config.Load
		}
		loaded, err := loader()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	log := opts.Logger
	if log == nil {
		log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
	}

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Env).
		Str("version", cfg.App.Version).
		Msg("Starting application")
	log.Debug().Interface("config", cfg.Sources()).Msg("Effective configuration")

	for _, warning := range cfg.CredentialWarnings() {
		log.Warn().Err(warning).Msg("Provider credentials missing; requests that need them will fail")
	}

	obs, err := newObservability(cfg, log)
	if err != nil {
		return nil, err
	}

	srv := opts.Server
	if srv == nil {
		srv = server.New(cfg, log)
	}
	srv.AddReadinessCheck(credentialReadiness(cfg))

	signals := opts.SignalHandler
	if signals == nil {
		signals = osSignalHandler{}
	}

	deps := &ModuleDeps{
		Logger:         log,
		Config:         cfg,
		TracerProvider: obs.TracerProvider(),
		MeterProvider:  obs.MeterProvider(),
	}

	return &App{
		cfg:           cfg,
		server:        srv,
		logger:        log,
		registry:      NewModuleRegistry(deps),
		observability: obs,
		signalHandler: signals,
	}, nil
}

// newObservability builds the telemetry provider before the server, so the
// server middleware picks up the global providers it installs.
func newObservability(cfg *config.Config, log logger.Logger) (observability.Provider, error) {
	obsCfg := cfg.Observability
	if obsCfg.Service.Name == "" {
		obsCfg.Service.Name = cfg.App.Name
	}
	if obsCfg.Service.Version == "" {
		obsCfg.Service.Version = cfg.App.Version
	}
	if obsCfg.Environment == "" {
		obsCfg.Environment = cfg.App.Env
	}

	provider, err := observability.NewProvider(&obsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	if obsCfg.Enabled {
		log.Info().
			Str("service", obsCfg.Service.Name).
			Str("endpoint", obsCfg.Trace.Endpoint).
			Msg("Observability enabled")
	}
	return provider, nil
}

// RegisterModule initializes module and adds it to the application.
func (a *App) RegisterModule(module Module) error {
	return a.registry.Register(module)
}

// Prepare registers the routes of every module. It runs once; later calls
// return the first result.
func (a *App) Prepare() error {
	a.prepareOnce.Do(func() {
		if a.registry.Len() == 0 {
			a.prepareErr = errors.New("no modules registered")
			return
		}
		a.registry.RegisterRoutes(a.server.ModuleGroup())
	})
	return a.prepareErr
}

// Handler returns the application as an http.Handler for serverless
// platforms. Routes are registered on first use.
func (a *App) Handler() (http.Handler, error) {
	if err := a.Prepare(); err != nil {
		return nil, err
	}
	return a.server, nil
}

// Config returns the configuration the application was built with.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}

// Shutdown stops modules, the HTTP server and telemetry. Every step runs
// even if an earlier one failed; the errors are joined.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	start := time.Now()

	a.logger.Info().Msg("Shutting down modules")
	if err := a.registry.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("modules: %w", err))
	}

	if a.server != nil {
		a.logger.Info().Msg("Shutting down HTTP server")
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server: %w", err))
			a.logger.Error().Err(err).Msg("Failed to shutdown server")
		}
	}

	if a.observability != nil {
		if err := a.observability.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observability: %w", err))
			a.logger.Error().Err(err).Msg("Failed to flush telemetry")
		}
	}

	a.logger.Info().Dur("duration", time.Since(start)).Msg("Application shutdown complete")
	return errors.Join(errs...)
}
