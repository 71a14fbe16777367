package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix scopes the environment variables read by Load.
const EnvPrefix = "CHECKOUT_"

// legacyEnv maps the Clover variable names of the serverless deployment
// onto configuration keys so existing deployments keep working.
var legacyEnv = map[string]string{
	"CLOVER_AUTH_TOKEN":   "clover.token",
	"CLOVER_ACCESS_TOKEN": "clover.token",
	"CLOVER_API_KEY":      "clover.token",
	"CLOVER_MERCHANT_ID":  "clover.merchantid",
}

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. YAML configuration files (config.yaml, config.<env>.yaml)
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// YAML files are optional
	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
		fmt.Printf("Warning: could not load config.yaml: %v\n", err)
	}

	if env := k.String("app.env"); env != "" {
		envFile := fmt.Sprintf("config.%s.yaml", env)
		if err := k.Load(file.Provider(envFile), yaml.Parser()); err != nil {
			fmt.Printf("Warning: could not load %s: %v\n", envFile, err)
		}
	}

	return finish(k)
}

// LoadFromYAML loads defaults, then the given YAML document, then the
// environment. It is used by tests and by callers that embed their config.
func LoadFromYAML(data []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	return finish(k)
}

func finish(k *koanf.Koanf) (*Config, error) {
	if err := loadEnvironment(k); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.k = k

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvironment(k *koanf.Koanf) error {
	legacy := envprovider.Provider(".", envprovider.Opt{
		Prefix: "CLOVER_",
		TransformFunc: func(key, value string) (string, any) {
			return legacyEnv[key], value
		},
	})
	if err := k.Load(legacy, nil); err != nil {
		return err
	}

	// CHECKOUT_CLOVER_MERCHANTID -> clover.merchantid
	return k.Load(envprovider.Provider(".", envprovider.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_", ".")
			if strings.HasSuffix(key, ".origins") {
				return key, strings.Split(value, ",")
			}
			return key, value
		},
	}), nil)
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":       "checkout-api",
		"app.version":    "v1.0.0",
		"app.env":        EnvDevelopment,
		"app.debug":      false,
		"app.rate.limit": 20,

		"server.host":               "0.0.0.0",
		"server.port":               8080,
		"server.timeout.read":       "15s",
		"server.timeout.write":      "60s",
		"server.timeout.idle":       "60s",
		"server.timeout.middleware": "55s",
		"server.timeout.shutdown":   "10s",
		"server.path.base":          "/api",
		"server.path.health":        "/health",
		"server.path.ready":         "/ready",
		"server.cors.origins":       []string{"*"},
		"server.bodylimit":          "1M",

		"log.level":  "info",
		"log.pretty": false,

		"clover.environment":  CloverSandbox,
		"clover.flow":         FlowAuthorize,
		"clover.currency":     "USD",
		"clover.redirecturl":  "https://your-website.com/thank-you",
		"clover.cancelurl":    "https://your-website.com/cancel",
		"clover.timeout":      "10s",
		"clover.receiptemail": "customer@example.com",

		"retry.maxretries": 5,
		"retry.basedelay":  "1s",
		"retry.maxjitter":  "1s",

		"coupons": []map[string]any{
			{"code": "SAVE10", "name": "Save 10%", "description": "10% off your order", "type": CouponPercentage, "value": 10, "active": true},
			{"code": "SAVE20", "name": "Save 20%", "description": "20% off your order", "type": CouponPercentage, "value": 20, "active": true},
			{"code": "SAVE50", "name": "Save 50%", "description": "50% off your order", "type": CouponPercentage, "value": 50, "active": true},
		},

		"observability.enabled":          false,
		"observability.endpoint":         EndpointStdout,
		"observability.protocol":         "http",
		"observability.insecure":         true,
		"observability.sample.rate":      1.0,
		"observability.metrics.interval": "30s",
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
