package observability

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/gaborage/go-checkout/config"
)

func TestNewProviderDisabledIsNoop(t *testing.T) {
	p, err := NewProvider(Config{Enabled: false})

	require.NoError(t, err)
	assert.IsType(t, &noopProvider{}, p)
	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "op")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
}

func TestNewProviderStdoutExportsOnShutdown(t *testing.T) {
	var out bytes.Buffer
	p, err := NewProvider(Config{
		Enabled:        true,
		ServiceName:    "checkout-api",
		ServiceVersion: "1.0.0",
		Environment:    config.EnvDevelopment,
	}, WithStdoutWriter(&out), WithoutGlobals())
	require.NoError(t, err)

	assert.IsType(t, &sdktrace.TracerProvider{}, p.TracerProvider())
	assert.IsType(t, &sdkmetric.MeterProvider{}, p.MeterProvider())

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "checkout.create")
	span.End()

	counter, err := p.MeterProvider().Meter("test").Int64Counter("checkout.sessions")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)

	require.NoError(t, p.ForceFlush(context.Background()))
	require.NoError(t, Shutdown(p, time.Second))

	assert.Contains(t, out.String(), "checkout.create")
	assert.Contains(t, out.String(), "checkout.sessions")
	assert.Contains(t, out.String(), "checkout-api")
}

func TestNewProviderOTLPExporters(t *testing.T) {
	for _, protocol := range []string{ProtocolHTTP, ProtocolGRPC} {
		t.Run(protocol, func(t *testing.T) {
			pr := &provider{config: Config{
				Endpoint: "localhost:4318",
				Protocol: protocol,
				Insecure: true,
				Headers:  map[string]string{"x-api-key": "k"},
			}}

			traceExp, err := pr.createTraceExporter()
			require.NoError(t, err)
			metricExp, err := pr.createMetricExporter()
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			assert.NoError(t, traceExp.Shutdown(ctx))
			assert.NoError(t, metricExp.Shutdown(ctx))
		})
	}
}

func TestNewProviderInvalidConfig(t *testing.T) {
	_, err := NewProvider(Config{Enabled: true, ServiceName: "svc", Endpoint: "collector:4317", Protocol: "udp"})

	assert.ErrorIs(t, err, ErrInvalidProtocol)
}

func TestShutdownNilProvider(t *testing.T) {
	assert.NoError(t, Shutdown(nil, 0))
}
