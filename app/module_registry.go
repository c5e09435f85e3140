package app

import (
	"errors"
	"fmt"

	"github.com/gaborage/keyrelay/logger"
	"github.com/gaborage/keyrelay/server"
)

// ModuleRegistry manages the registration and lifecycle of application modules.
type ModuleRegistry struct {
	modules []Module
	deps    *ModuleDeps
	logger  logger.Logger
}

// NewModuleRegistry creates a new module registry with the given dependencies.
func NewModuleRegistry(deps *ModuleDeps) *ModuleRegistry {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	return &ModuleRegistry{
		modules: make([]Module, 0),
		deps:    deps,
		logger:  log,
	}
}

// Register initializes module with the shared dependencies and keeps it.
// Module names must be unique.
func (r *ModuleRegistry) Register(module Module) error {
	moduleName := module.Name()
	for _, m := range r.modules {
		if m.Name() == moduleName {
			return fmt.Errorf("module %q already registered", moduleName)
		}
	}

	r.logger.Info().
		Str("module", moduleName).
		Msg("Registering module")

	if err := module.Init(r.deps); err != nil {
		return fmt.Errorf("module %q init failed: %w", moduleName, err)
	}

	r.modules = append(r.modules, module)
	return nil
}

// Len returns the number of registered modules.
func (r *ModuleRegistry) Len() int {
	return len(r.modules)
}

// RegisterRoutes calls RegisterRoutes on all registered modules.
func (r *ModuleRegistry) RegisterRoutes(registrar server.RouteRegistrar) {
	handlerRegistry := server.NewHandlerRegistry(r.deps.Config)

	for _, module := range r.modules {
		r.logger.Info().
			Str("module", module.Name()).
			Msg("Registering module routes")

		module.RegisterRoutes(handlerRegistry, registrar)
	}
}

// Shutdown shuts every module down in reverse registration order.
func (r *ModuleRegistry) Shutdown() error {
	var errs []error
	for i := len(r.modules) - 1; i >= 0; i-- {
		module := r.modules[i]
		r.logger.Info().
			Str("module", module.Name()).
			Msg("Shutting down module")

		if err := module.Shutdown(); err != nil {
			r.logger.Error().
				Err(err).
				Str("module", module.Name()).
				Msg("Failed to shutdown module")
			errs = append(errs, fmt.Errorf("%s: %w", module.Name(), err))
		}
	}
	return errors.Join(errs...)
}
