// Package tracking records OpenTelemetry spans and metrics for outbound
// executor calls.
package tracking

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "go-checkout/http-client"

	// SpanName is the name of the span covering one Execute call.
	SpanName = "http.client.execute"

	MetricAttempts     = "http.client.attempts"
	MetricAttemptTime  = "http.client.attempt.duration"
	MetricBackoffWait  = "http.client.backoff.wait"
	MetricOutcomeFinal = "http.client.executions"

	AttrOutcome  = "checkout.attempt.outcome"
	AttrAttempts = "checkout.attempts"
)

// Tracker owns the instruments used by one client.
type Tracker struct {
	tracer      trace.Tracer
	attempts    metric.Int64Counter
	attemptTime metric.Float64Histogram
	waits       metric.Float64Histogram
	executions  metric.Int64Counter
}

// New builds a Tracker. Nil providers fall back to the global ones.
func New(mp metric.MeterProvider, tp trace.TracerProvider) *Tracker {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	meter := mp.Meter(instrumentationName)
	t := &Tracker{tracer: tp.Tracer(instrumentationName)}

	var err error
	t.attempts, err = meter.Int64Counter(MetricAttempts,
		metric.WithDescription("Outbound request attempts by outcome"),
		metric.WithUnit("{attempt}"))
	logMetricError(MetricAttempts, err)

	t.attemptTime, err = meter.Float64Histogram(MetricAttemptTime,
		metric.WithDescription("Duration of a single outbound attempt"),
		metric.WithUnit("s"))
	logMetricError(MetricAttemptTime, err)

	t.waits, err = meter.Float64Histogram(MetricBackoffWait,
		metric.WithDescription("Backoff waits between attempts"),
		metric.WithUnit("s"))
	logMetricError(MetricBackoffWait, err)

	t.executions, err = meter.Int64Counter(MetricOutcomeFinal,
		metric.WithDescription("Completed executions by final outcome"),
		metric.WithUnit("{execution}"))
	logMetricError(MetricOutcomeFinal, err)

	return t
}

func logMetricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize HTTP client metric %s: %v\n", name, err)
	}
}

// Start opens the execution span.
func (t *Tracker) Start(ctx context.Context, method, url string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.URLFull(url),
		),
	)
}

// Attempt records one finished attempt.
func (t *Tracker) Attempt(ctx context.Context, method, outcome string, status int, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(method),
		attribute.String(AttrOutcome, outcome),
	}
	if status > 0 {
		attrs = append(attrs, semconv.HTTPResponseStatusCode(status))
	}
	if t.attempts != nil {
		t.attempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if t.attemptTime != nil {
		t.attemptTime.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	}
	trace.SpanFromContext(ctx).AddEvent("attempt", trace.WithAttributes(attrs...))
}

// Wait records a backoff wait before the next attempt.
func (t *Tracker) Wait(ctx context.Context, outcome string, wait time.Duration) {
	if t.waits != nil {
		t.waits.Record(ctx, wait.Seconds(), metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
	}
}

// End closes the execution span and counts the final outcome.
func (t *Tracker) End(ctx context.Context, span trace.Span, outcome string, attempts int, err error) {
	if t.executions != nil {
		t.executions.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
	}
	span.SetAttributes(attribute.Int(AttrAttempts, attempts), attribute.String(AttrOutcome, outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
