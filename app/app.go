// Package app wires configuration, logging, telemetry, the payment gateway
// and the HTTP server into a runnable checkout service.
package app

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaborage/go-checkout/checkout"
	"github.com/gaborage/go-checkout/clover"
	"github.com/gaborage/go-checkout/config"
	"github.com/gaborage/go-checkout/coupon"
	checkouthttp "github.com/gaborage/go-checkout/http"
	"github.com/gaborage/go-checkout/logger"
	"github.com/gaborage/go-checkout/observability"
	"github.com/gaborage/go-checkout/server"
)

const defaultShutdownTimeout = 10 * time.Second

// App represents the main application instance.
type App struct {
	cfg      *config.Config
	server   *server.Server
	logger   logger.Logger
	obs      observability.Provider
	registry *ModuleRegistry
}

// Option customizes NewWithConfig.
type Option func(*options)

type options struct {
	logger    logger.Logger
	transport nethttp.RoundTripper
	obsOpts   []observability.Option
}

// WithLogger replaces the logger built from cfg.Log.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithTransport sets the base transport for outbound provider calls.
func WithTransport(rt nethttp.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithObservabilityOptions forwards options to observability.NewProvider.
func WithObservabilityOptions(opts ...observability.Option) Option {
	return func(o *options) { o.obsOpts = append(o.obsOpts, opts...) }
}

// New loads configuration from files and the environment and builds the app.
func New(opts ...Option) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return NewWithConfig(cfg, opts...)
}

// NewWithConfig builds the app from an already loaded configuration.
func NewWithConfig(cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	log := o.logger
	if log == nil {
		log = logger.New(cfg.Log.Level, cfg.Log.Pretty)
	}

	log.Info().
		Str("app", cfg.App.Name).
		Str("env", cfg.App.Env).
		Str("version", cfg.App.Version).
		Msg("Starting application")

	obs, err := observability.NewProvider(observability.FromConfig(cfg),
		append([]observability.Option{observability.WithLogger(log)}, o.obsOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	builder := checkouthttp.NewBuilder(log).
		WithTimeout(cfg.Clover.Timeout).
		WithMeterProvider(obs.MeterProvider()).
		WithTracerProvider(obs.TracerProvider())
	if o.transport != nil {
		builder = builder.WithTransport(o.transport)
	}

	gateway := clover.NewGateway(clover.NewConfig(cfg.Clover, cfg.Retry), builder.Build(), log)

	srv := server.New(cfg, log,
		server.WithMeterProvider(obs.MeterProvider()),
		server.WithTracerProvider(obs.TracerProvider()),
	)
	srv.AddReadinessCheck("clover", gateway.Check)

	registry := NewModuleRegistry(cfg, log)
	svc := checkout.NewService(newCatalog(cfg), gateway, log)
	if err := registry.Register(checkout.NewModule(svc, log)); err != nil {
		return nil, err
	}
	registry.RegisterRoutes(srv.ModuleGroup())

	return &App{
		cfg:      cfg,
		server:   srv,
		logger:   log,
		obs:      obs,
		registry: registry,
	}, nil
}

func newCatalog(cfg *config.Config) coupon.Catalog {
	if len(cfg.Coupons) == 0 {
		return coupon.NewStaticCatalog(coupon.Defaults())
	}
	return coupon.FromConfig(cfg.Coupons)
}

// Server returns the HTTP server.
func (a *App) Server() *server.Server {
	return a.server
}

// Run starts the server and blocks until ctx is canceled, SIGINT or SIGTERM
// arrives, or the server fails. It then shuts the app down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.logger.Error().Err(err).Msg("Server stopped unexpectedly")
			return errors.Join(fmt.Errorf("server failed: %w", err), a.Shutdown(context.Background()))
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info().Msg("Shutting down application")

	timeout := a.cfg.Server.Timeout.Shutdown
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the server, the modules and the telemetry exporters.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown server")
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}

	a.registry.Shutdown()

	if err := a.obs.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Failed to shutdown observability")
		errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
	}

	a.logger.Info().Msg("Application shutdown complete")
	return errors.Join(errs...)
}
