// Package server provides the inbound HTTP surface of the checkout service
// using the Echo framework: middleware, routing, readiness probes and the
// standardized response envelope.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/gaborage/go-checkout/config"
	"github.com/gaborage/go-checkout/logger"
)

const (
	defaultHealthRoute  = "/health"
	defaultReadyRoute   = "/ready"
	readinessTimeout    = 5 * time.Second
	envAliasDevelopment = "dev"
)

// ReadinessCheck reports whether a dependency is able to serve traffic.
type ReadinessCheck func(ctx context.Context) error

type namedCheck struct {
	name  string
	check ReadinessCheck
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	meterProvider  metric.MeterProvider
	tracerProvider oteltrace.TracerProvider
}

// WithMeterProvider sets the meter provider used for inbound request metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// WithTracerProvider sets the tracer provider used for inbound request spans.
func WithTracerProvider(tp oteltrace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// Server represents an HTTP server instance with Echo framework.
type Server struct {
	echo       *echo.Echo
	cfg        *config.Config
	logger     logger.Logger
	basePath   string
	healthPath string
	readyPath  string

	mu     sync.RWMutex
	checks []namedCheck
}

// New creates a new HTTP server with middlewares, error handling and the
// health and readiness endpoints registered under the configured base path.
func New(cfg *config.Config, log logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.Nop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	basePath := normalizePrefix(cfg.Server.Path.Base)
	s := &Server{
		echo:       e,
		cfg:        cfg,
		logger:     log,
		basePath:   basePath,
		healthPath: joinPath(basePath, normalizeRoutePath(cfg.Server.Path.Health, defaultHealthRoute)),
		readyPath:  joinPath(basePath, normalizeRoutePath(cfg.Server.Path.Ready, defaultReadyRoute)),
	}
	e.HTTPErrorHandler = s.handleError

	setupMiddlewares(e, log, cfg, s.probePaths(), o)

	e.GET(s.healthPath, s.healthCheck)
	e.GET(s.readyPath, s.readyCheck)

	log.Debug().
		Str("base_path", basePath).
		Str("health_path", s.healthPath).
		Str("ready_path", s.readyPath).
		Msg("Server paths configured")

	return s
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// ModuleGroup returns a registrar that prefixes routes with the base path.
func (s *Server) ModuleGroup() RouteRegistrar {
	return newRouteGroup(s.echo.Group(s.basePath), s.basePath)
}

// AddReadinessCheck registers a dependency probe evaluated by the ready endpoint.
func (s *Server) AddReadinessCheck(name string, check ReadinessCheck) {
	if check == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, namedCheck{name: name, check: check})
}

// Start begins accepting requests and blocks until the server stops.
// After Shutdown it returns http.ErrServerClosed.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.logger.Info().
		Str("service", s.cfg.App.Name).
		Str("version", s.cfg.App.Version).
		Str("env", s.cfg.App.Env).
		Str("address", addr).
		Msg("Starting server...")

	// Echo.Shutdown only stops Echo's own Server, so that is the one started.
	srv := s.echo.Server
	srv.Addr = addr
	srv.ReadTimeout = s.cfg.Server.Timeout.Read
	srv.WriteTimeout = s.cfg.Server.Timeout.Write
	srv.IdleTimeout = s.cfg.Server.Timeout.Idle
	return s.echo.StartServer(srv)
}

// Shutdown gracefully shuts down the HTTP server, waiting for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) probePaths() []string {
	return []string{s.healthPath, s.readyPath}
}

func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (s *Server) readyCheck(c echo.Context) error {
	s.mu.RLock()
	checks := slices.Clone(s.checks)
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(checks))
	for _, nc := range checks {
		if err := nc.check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[nc.name] = err.Error()
			s.logger.WithContext(ctx).Warn().
				Err(err).
				Str("check", nc.name).
				Msg("Readiness check failed")
			continue
		}
		results[nc.name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	return c.JSON(status, map[string]any{
		"status": state,
		"time":   time.Now().Unix(),
		"checks": results,
	})
}

// handleError renders every error that reaches Echo as an APIResponse envelope.
func (s *Server) handleError(err error, c echo.Context) {
	if resp := c.Response(); resp == nil || resp.Committed {
		return
	}

	var apiErr IAPIError
	if errors.As(err, &apiErr) {
		_ = formatErrorResponse(c, apiErr, s.cfg)
		return
	}

	status := http.StatusInternalServerError
	msg := "Internal server error"
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		}
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		msg = "Request timed out"
	}

	if !s.cfg.App.Debug && status == http.StatusInternalServerError {
		msg = "An error occurred while processing your request"
	}

	if status >= http.StatusInternalServerError {
		s.logger.WithContext(c.Request().Context()).Error().
			Err(err).
			Int("status", status).
			Msg("Unhandled request error")
	}

	base := NewBaseAPIError(statusToErrorCode(status), msg, status)
	if isDevelopment(s.cfg) {
		_ = base.WithDetails("error", err.Error())
	}
	_ = formatErrorResponse(c, base, s.cfg)
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
	case http.StatusTooManyRequests:
		return "TOO_MANY_REQUESTS"
	case http.StatusBadGateway:
		return "BAD_GATEWAY"
	case http.StatusServiceUnavailable:
		return "SERVICE_UNAVAILABLE"
	default:
		if status >= 400 && status < 500 {
			return "CLIENT_ERROR"
		}
		return "INTERNAL_ERROR"
	}
}

func isDevelopment(cfg *config.Config) bool {
	return cfg.App.Env == config.EnvDevelopment || cfg.App.Env == envAliasDevelopment
}

// normalizeRoutePath ensures a route starts with "/" and falls back to defaultRoute.
func normalizeRoutePath(route, defaultRoute string) string {
	if route == "" {
		route = defaultRoute
	}
	return ensureLeadingSlash(route)
}

func joinPath(prefix, route string) string {
	if prefix == "" {
		return route
	}
	if route == "/" {
		return prefix
	}
	return prefix + strings.TrimRight(route, "/")
}
