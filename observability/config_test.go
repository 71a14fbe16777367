package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/gaborage/go-checkout/config"
)

func TestFromConfig(t *testing.T) {
	cfg := &config.Config{
		App: config.AppConfig{Name: "checkout-api", Version: "2.1.0", Env: config.EnvStaging},
		Observability: config.ObservabilityConfig{
			Enabled:  true,
			Endpoint: "otel-collector:4317",
			Protocol: ProtocolGRPC,
			Headers:  map[string]string{"x-api-key": "k"},
			Sample:   config.SampleConfig{Rate: 0.25},
			Metrics:  config.MetricsConfig{Interval: 10 * time.Second},
		},
	}

	got := FromConfig(cfg)

	assert.Equal(t, Config{
		Enabled:         true,
		ServiceName:     "checkout-api",
		ServiceVersion:  "2.1.0",
		Environment:     config.EnvStaging,
		Endpoint:        "otel-collector:4317",
		Protocol:        ProtocolGRPC,
		Headers:         map[string]string{"x-api-key": "k"},
		SampleRate:      0.25,
		MetricsInterval: 10 * time.Second,
	}, got)

	got.Headers["x-api-key"] = "changed"
	assert.Equal(t, "k", cfg.Observability.Headers["x-api-key"])
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	assert.Equal(t, EndpointStdout, cfg.Endpoint)
	assert.Equal(t, ProtocolHTTP, cfg.Protocol)
	assert.Equal(t, defaultSampleRate, cfg.SampleRate)
	assert.Equal(t, defaultMetricsInterval, cfg.MetricsInterval)
}

func TestValidate(t *testing.T) {
	valid := Config{Enabled: true, ServiceName: "svc", Endpoint: "collector:4318", Protocol: ProtocolHTTP, SampleRate: 1}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "disabled skips checks", mutate: func(c *Config) { *c = Config{} }},
		{name: "stdout ignores protocol", mutate: func(c *Config) { c.Endpoint = EndpointStdout; c.Protocol = "bogus" }},
		{name: "service name", mutate: func(c *Config) { c.ServiceName = " " }, want: ErrMissingServiceName},
		{name: "sample rate high", mutate: func(c *Config) { c.SampleRate = 1.5 }, want: ErrInvalidSampleRate},
		{name: "sample rate negative", mutate: func(c *Config) { c.SampleRate = -0.1 }, want: ErrInvalidSampleRate},
		{name: "endpoint", mutate: func(c *Config) { c.Endpoint = "" }, want: ErrMissingEndpoint},
		{name: "protocol", mutate: func(c *Config) { c.Protocol = "udp" }, want: ErrInvalidProtocol},
		{name: "scheme", mutate: func(c *Config) { c.Endpoint = "http://collector:4318" }, want: ErrInvalidEndpointFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
