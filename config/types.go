package config

import (
	"time"

	"github.com/knadh/koanf/v2"
)

// Config is the full service configuration. Fields not modelled here remain
// reachable through the accessor methods backed by the koanf instance.
type Config struct {
	App           AppConfig           `koanf:"app" json:"app" yaml:"app"`
	Server        ServerConfig        `koanf:"server" json:"server" yaml:"server"`
	Log           LogConfig           `koanf:"log" json:"log" yaml:"log"`
	Clover        CloverConfig        `koanf:"clover" json:"clover" yaml:"clover"`
	Retry         RetryConfig         `koanf:"retry" json:"retry" yaml:"retry"`
	Coupons       []CouponConfig      `koanf:"coupons" json:"coupons" yaml:"coupons"`
	Observability ObservabilityConfig `koanf:"observability" json:"observability" yaml:"observability"`

	k *koanf.Koanf `json:"-" yaml:"-"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name    string     `koanf:"name" json:"name" yaml:"name"`
	Version string     `koanf:"version" json:"version" yaml:"version"`
	Env     string     `koanf:"env" json:"env" yaml:"env"`
	Debug   bool       `koanf:"debug" json:"debug" yaml:"debug"`
	Rate    RateConfig `koanf:"rate" json:"rate" yaml:"rate"`
}

// RateConfig limits inbound requests per client IP. Zero disables limiting.
type RateConfig struct {
	Limit int `koanf:"limit" json:"limit" yaml:"limit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host      string        `koanf:"host" json:"host" yaml:"host"`
	Port      int           `koanf:"port" json:"port" yaml:"port"`
	Timeout   TimeoutConfig `koanf:"timeout" json:"timeout" yaml:"timeout"`
	Path      PathConfig    `koanf:"path" json:"path" yaml:"path"`
	CORS      CORSConfig    `koanf:"cors" json:"cors" yaml:"cors"`
	BodyLimit string        `koanf:"bodylimit" json:"bodylimit" yaml:"bodylimit"`
}

// TimeoutConfig holds various timeout durations for the server.
type TimeoutConfig struct {
	Read       time.Duration `koanf:"read" json:"read" yaml:"read"`
	Write      time.Duration `koanf:"write" json:"write" yaml:"write"`
	Idle       time.Duration `koanf:"idle" json:"idle" yaml:"idle"`
	Middleware time.Duration `koanf:"middleware" json:"middleware" yaml:"middleware"`
	Shutdown   time.Duration `koanf:"shutdown" json:"shutdown" yaml:"shutdown"`
}

// PathConfig holds URL path settings for the server.
type PathConfig struct {
	Base   string `koanf:"base" json:"base" yaml:"base"`
	Health string `koanf:"health" json:"health" yaml:"health"`
	Ready  string `koanf:"ready" json:"ready" yaml:"ready"`
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	Origins []string `koanf:"origins" json:"origins" yaml:"origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Pretty bool   `koanf:"pretty" json:"pretty" yaml:"pretty"`
}

// CloverConfig holds the payment-provider credentials and endpoints.
// BaseURL and CheckoutURL are derived from Environment when left empty.
type CloverConfig struct {
	Environment  string        `koanf:"environment" json:"environment" yaml:"environment"`
	Token        string        `koanf:"token" json:"-" yaml:"token"`
	MerchantID   string        `koanf:"merchantid" json:"merchantid" yaml:"merchantid"`
	BaseURL      string        `koanf:"baseurl" json:"baseurl" yaml:"baseurl"`
	CheckoutURL  string        `koanf:"checkouturl" json:"checkouturl" yaml:"checkouturl"`
	RedirectURL  string        `koanf:"redirecturl" json:"redirecturl" yaml:"redirecturl"`
	CancelURL    string        `koanf:"cancelurl" json:"cancelurl" yaml:"cancelurl"`
	ReceiptEmail string        `koanf:"receiptemail" json:"receiptemail" yaml:"receiptemail"`
	Currency     string        `koanf:"currency" json:"currency" yaml:"currency"`
	Flow         string        `koanf:"flow" json:"flow" yaml:"flow"`
	Timeout      time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
}

// RetryConfig is the resilience policy applied to every provider call.
type RetryConfig struct {
	MaxRetries int           `koanf:"maxretries" json:"maxretries" yaml:"maxretries"`
	BaseDelay  time.Duration `koanf:"basedelay" json:"basedelay" yaml:"basedelay"`
	MaxJitter  time.Duration `koanf:"maxjitter" json:"maxjitter" yaml:"maxjitter"`
}

// CouponConfig describes one entry of the coupon table.
type CouponConfig struct {
	Code        string  `koanf:"code" json:"code" yaml:"code"`
	Name        string  `koanf:"name" json:"name" yaml:"name"`
	Description string  `koanf:"description" json:"description" yaml:"description"`
	Type        string  `koanf:"type" json:"type" yaml:"type"`
	Value       float64 `koanf:"value" json:"value" yaml:"value"`
	Active      bool    `koanf:"active" json:"active" yaml:"active"`
}

// ObservabilityConfig controls OpenTelemetry export.
type ObservabilityConfig struct {
	Enabled  bool              `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Endpoint string            `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	Protocol string            `koanf:"protocol" json:"protocol" yaml:"protocol"`
	Insecure bool              `koanf:"insecure" json:"insecure" yaml:"insecure"`
	Headers  map[string]string `koanf:"headers" json:"-" yaml:"headers"`
	Sample   SampleConfig      `koanf:"sample" json:"sample" yaml:"sample"`
	Metrics  MetricsConfig     `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// SampleConfig holds the trace sampling ratio.
type SampleConfig struct {
	Rate float64 `koanf:"rate" json:"rate" yaml:"rate"`
}

// MetricsConfig holds the metric export interval.
type MetricsConfig struct {
	Interval time.Duration `koanf:"interval" json:"interval" yaml:"interval"`
}
