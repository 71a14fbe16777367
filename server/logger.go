package server

import (
	"fmt"
	"slices"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gaborage/go-checkout/logger"
	"github.com/gaborage/go-checkout/trace"
)

const defaultSlowRequestThreshold = time.Second

// LoggerConfig configures the request logging middleware.
type LoggerConfig struct {
	// SkipPaths are routes never logged, typically the health and ready probes.
	SkipPaths []string

	// SlowRequestThreshold marks successful requests slower than this with
	// result_code WARN. Zero or negative disables slow request detection.
	SlowRequestThreshold time.Duration
}

// LoggerWithConfig writes one summary line per request. Handler errors are
// rendered through Echo's error handler first so the logged status is the one
// the client receives.
func LoggerWithConfig(log logger.Logger, cfg LoggerConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}
			if slices.Contains(cfg.SkipPaths, path) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			latency := time.Since(start)

			status := 0
			if resp := c.Response(); resp != nil {
				status = resp.Status
			}
			logRequestSummary(c, log, cfg, latency, status, err)
			return err
		}
	}
}

func logRequestSummary(c echo.Context, log logger.Logger, cfg LoggerConfig, latency time.Duration, status int, err error) {
	req := c.Request()
	level, resultCode := determineSeverity(status, latency, cfg.SlowRequestThreshold, err)

	event := createLogEvent(log.WithContext(req.Context()), level)
	if err != nil {
		event = event.Err(err)
	}

	traceparent := ""
	if resp := c.Response(); resp != nil {
		traceparent = resp.Header().Get(trace.HeaderTraceParent)
	}

	event.
		Str("request_id", getTraceID(c)).
		Str("http.request.method", req.Method).
		Int("http.response.status_code", status).
		Int64("http.server.request.duration", latency.Nanoseconds()).
		Str("url.path", req.URL.Path).
		Str("http.route", c.Path()).
		Str("client.address", c.RealIP()).
		Str("user_agent.original", req.UserAgent()).
		Str("result_code", resultCode).
		Str("traceparent", traceparent).
		Msg(fmt.Sprintf("%s %s completed in %s with status %d", req.Method, req.URL.Path, latency, status))
}

// determineSeverity maps status, latency and handler error to a log level and result code.
func determineSeverity(status int, latency, threshold time.Duration, err error) (level, resultCode string) {
	switch {
	case status >= 500 || (err != nil && status == 0):
		return "error", "ERROR"
	case status >= 400:
		return "warn", "WARN"
	case threshold > 0 && latency > threshold:
		return "info", "WARN"
	default:
		return "info", "INFO"
	}
}

func createLogEvent(log logger.Logger, level string) logger.LogEvent {
	switch level {
	case "error":
		return log.Error()
	case "warn":
		return log.Warn()
	default:
		return log.Info()
	}
}
