// Package observability bootstraps the OpenTelemetry tracer and meter
// providers used by the server middleware and the outbound executor.
package observability

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/gaborage/go-checkout/config"
)

const (
	// ProtocolHTTP exports OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"
	// ProtocolGRPC exports OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// EndpointStdout prints telemetry to stdout instead of exporting it.
	EndpointStdout = config.EndpointStdout

	defaultSampleRate      = 1.0
	defaultMetricsInterval = 30 * time.Second
	defaultBatchTimeout    = 5 * time.Second
	defaultExportTimeout   = 30 * time.Second
)

// Config is the resolved observability configuration.
type Config struct {
	Enabled         bool
	ServiceName     string
	ServiceVersion  string
	Environment     string
	Endpoint        string
	Protocol        string
	Insecure        bool
	Headers         map[string]string
	SampleRate      float64
	MetricsInterval time.Duration
}

// FromConfig builds the observability settings from the application config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Enabled:         cfg.Observability.Enabled,
		ServiceName:     cfg.App.Name,
		ServiceVersion:  cfg.App.Version,
		Environment:     cfg.App.Env,
		Endpoint:        cfg.Observability.Endpoint,
		Protocol:        cfg.Observability.Protocol,
		Insecure:        cfg.Observability.Insecure,
		Headers:         maps.Clone(cfg.Observability.Headers),
		SampleRate:      cfg.Observability.Sample.Rate,
		MetricsInterval: cfg.Observability.Metrics.Interval,
	}
}

// applyDefaults fills zero values. A zero sample rate is treated as unset.
func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = EndpointStdout
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTP
	}
	if c.SampleRate == 0 {
		c.SampleRate = defaultSampleRate
	}
	if c.MetricsInterval <= 0 {
		c.MetricsInterval = defaultMetricsInterval
	}
}

// Validate checks an enabled configuration. A disabled one is always valid.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return ErrMissingServiceName
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidSampleRate, c.SampleRate)
	}
	if c.Endpoint == "" {
		return ErrMissingEndpoint
	}
	if c.Endpoint == EndpointStdout {
		return nil
	}
	if c.Protocol != ProtocolHTTP && c.Protocol != ProtocolGRPC {
		return fmt.Errorf("protocol %q: %w", c.Protocol, ErrInvalidProtocol)
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("%w: %s endpoint %q must be host:port", ErrInvalidEndpointFormat, c.Protocol, c.Endpoint)
	}
	return nil
}
