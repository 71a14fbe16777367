package server

import (
	"context"
	"slices"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/gaborage/go-checkout/config"
	"github.com/gaborage/go-checkout/logger"
	"github.com/gaborage/go-checkout/server/internal/tracking"
)

// HeaderXResponseTime reports request processing duration.
const HeaderXResponseTime = "X-Response-Time"

const (
	defaultBodyLimit = "1M"
	gzipLevel        = 5
)

// setupMiddlewares registers the middleware chain. Probe paths are excluded
// from tracing, metrics, request logs and rate limiting.
func setupMiddlewares(e *echo.Echo, log logger.Logger, cfg *config.Config, probes []string, o options) {
	skipProbes := func(c echo.Context) bool {
		return slices.Contains(probes, c.Path())
	}

	e.Use(middleware.RequestID())
	e.Use(TraceContext())

	tracingOpts := []otelecho.Option{otelecho.WithSkipper(skipProbes)}
	if o.tracerProvider != nil {
		tracingOpts = append(tracingOpts, otelecho.WithTracerProvider(o.tracerProvider))
	}
	e.Use(otelecho.Middleware(cfg.App.Name, tracingOpts...))
	e.Use(tracking.New(o.meterProvider).Middleware(skipProbes))

	e.Use(CORS(cfg.Server.CORS.Origins))
	e.Use(LoggerWithConfig(log, LoggerConfig{
		SkipPaths:            probes,
		SlowRequestThreshold: defaultSlowRequestThreshold,
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.WithContext(c.Request().Context()).Error().
				Err(err).
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

	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit == "" {
		bodyLimit = defaultBodyLimit
	}
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(Timeout(cfg.Server.Timeout.Middleware))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{Level: gzipLevel}))
	e.Use(RateLimit(cfg.App.Rate.Limit, skipProbes))
	e.Use(Timing())
}

// Timeout bounds the request context without swapping Echo's response writer.
// A handler that observes the deadline gets its error replaced by the context
// error, which the server error handler renders as 503.
func Timeout(d time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if d <= 0 {
			return next
		}
		return func(c echo.Context) error {
			parent := c.Request().Context()
			if err := parent.Err(); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(parent, d)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			err := next(c)
			if ctxErr := ctx.Err(); ctxErr != nil && !c.Response().Committed {
				return ctxErr
			}
			return err
		}
	}
}

// Timing adds an X-Response-Time header with the handler duration.
func Timing() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			c.Response().Before(func() {
				c.Response().Header().Set(HeaderXResponseTime, time.Since(start).String())
			})
			return next(c)
		}
	}
}
