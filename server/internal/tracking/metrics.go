// Package tracking records inbound HTTP server metrics following the
// OpenTelemetry HTTP semantic conventions.
package tracking

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "go-checkout/http-server"

	MetricRequestDuration = "http.server.request.duration"
	MetricActiveRequests  = "http.server.active_requests"

	attrHTTPRequestMethod  = "http.request.method"
	attrHTTPResponseStatus = "http.response.status_code"
	attrHTTPRoute          = "http.route"
	attrURLScheme          = "url.scheme"
	attrErrorType          = "error.type"
)

// Recommended boundaries for HTTP request latency in seconds.
var durationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

// Metrics holds the server instruments.
type Metrics struct {
	duration metric.Float64Histogram
	active   metric.Int64UpDownCounter
}

// New creates the instruments from mp, or from the global provider when nil.
// Instrument errors are reported through otel.Handle and leave the instrument unset.
func New(mp metric.MeterProvider) *Metrics {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	duration, err := meter.Float64Histogram(
		MetricRequestDuration,
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	if err != nil {
		otel.Handle(err)
		duration = nil
	}

	active, err := meter.Int64UpDownCounter(
		MetricActiveRequests,
		metric.WithDescription("Number of active HTTP server requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		otel.Handle(err)
		active = nil
	}

	return &Metrics{duration: duration, active: active}
}

// Middleware records request duration and in-flight count. Requests matching
// skipper are not measured.
func (m *Metrics) Middleware(skipper func(echo.Context) bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if skipper != nil && skipper(c) {
				return next(c)
			}

			req := c.Request()
			ctx := req.Context()
			scheme := extractScheme(c)
			base := metric.WithAttributes(
				attribute.String(attrHTTPRequestMethod, req.Method),
				attribute.String(attrURLScheme, scheme),
			)

			if m.active != nil {
				m.active.Add(ctx, 1, base)
			}
			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)
			if m.active != nil {
				m.active.Add(ctx, -1, base)
			}

			if m.duration != nil {
				attrs := durationAttributes(req.Method, scheme, c.Response().Status, c.Path(), err)
				m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
			}
			return err
		}
	}
}

func durationAttributes(method, scheme string, status int, route string, err error) []attribute.KeyValue {
	if route == "" {
		route = "unknown"
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrHTTPRequestMethod, method),
		attribute.String(attrURLScheme, scheme),
		attribute.Int(attrHTTPResponseStatus, status),
		attribute.String(attrHTTPRoute, route),
	}
	if errorType := classifyError(status, err); errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}
	return attrs
}

// extractScheme prefers X-Forwarded-Proto, then the TLS state of the request.
func extractScheme(c echo.Context) string {
	if proto := c.Request().Header.Get(echo.HeaderXForwardedProto); proto != "" {
		return proto
	}
	if c.Request().TLS != nil {
		return "https"
	}
	return "http"
}

// classifyError returns the status code for 4xx/5xx responses, "handler_error"
// for an error with a successful status, and "" otherwise.
func classifyError(status int, err error) string {
	if status >= 400 {
		return strconv.Itoa(status)
	}
	if err != nil {
		return "handler_error"
	}
	return ""
}
