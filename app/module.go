package app

import (
	"fmt"

	"github.com/gaborage/go-checkout/config"
	"github.com/gaborage/go-checkout/logger"
	"github.com/gaborage/go-checkout/server"
)

// Module is a unit of HTTP surface with its own shutdown hook.
type Module interface {
	Name() string
	RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar)
	Shutdown() error
}

// ModuleRegistry manages the registration and lifecycle of application modules.
type ModuleRegistry struct {
	modules []Module
	cfg     *config.Config
	logger  logger.Logger
}

// NewModuleRegistry creates an empty registry.
func NewModuleRegistry(cfg *config.Config, log logger.Logger) *ModuleRegistry {
	return &ModuleRegistry{
		modules: make([]Module, 0),
		cfg:     cfg,
		logger:  log,
	}
}

// Register adds a module. Names must be unique.
func (r *ModuleRegistry) Register(module Module) error {
	for _, m := range r.modules {
		if m.Name() == module.Name() {
			return fmt.Errorf("module %q already registered", module.Name())
		}
	}

	r.logger.Info().
		Str("module", module.Name()).
		Msg("Registering module")

	r.modules = append(r.modules, module)
	return nil
}

// RegisterRoutes calls RegisterRoutes on all registered modules.
func (r *ModuleRegistry) RegisterRoutes(registrar server.RouteRegistrar) {
	handlerRegistry := server.NewHandlerRegistry(r.cfg)

	for _, module := range r.modules {
		r.logger.Info().
			Str("module", module.Name()).
			Msg("Registering module routes")

		module.RegisterRoutes(handlerRegistry, registrar)
	}
}

// Shutdown calls each module's Shutdown in reverse registration order and
// logs failures without stopping.
func (r *ModuleRegistry) Shutdown() {
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
		}
	}
}
