package config

import (
	"fmt"
	"slices"
	"strings"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Clover environments
const (
	CloverSandbox    = "sandbox"
	CloverProduction = "production"
)

// Checkout flows supported by the Clover gateway
const (
	FlowAuthorize   = "authorize"
	FlowCheckouts   = "checkouts"
	FlowPaymentLink = "payment_link"
)

// Coupon types
const (
	CouponPercentage = "percentage"
	CouponFixed      = "fixed"
)

// EndpointStdout exports telemetry to stdout instead of an OTLP collector.
const EndpointStdout = "stdout"

// Validate checks every section and returns the first failure.
func Validate(cfg *Config) error {
	if err := validateApp(&cfg.App); err != nil {
		return fmt.Errorf("app config: %w", err)
	}
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateClover(&cfg.Clover); err != nil {
		return fmt.Errorf("clover config: %w", err)
	}
	if err := validateRetry(&cfg.Retry); err != nil {
		return fmt.Errorf("retry config: %w", err)
	}
	if err := validateCoupons(cfg.Coupons); err != nil {
		return fmt.Errorf("coupons config: %w", err)
	}
	return nil
}

func validateApp(cfg *AppConfig) error {
	if cfg.Name == "" {
		return NewMissingFieldError("app.name", EnvPrefix+"APP_NAME", "app.name")
	}
	if cfg.Version == "" {
		return NewMissingFieldError("app.version", EnvPrefix+"APP_VERSION", "app.version")
	}

	validEnvs := []string{EnvDevelopment, EnvStaging, EnvProduction}
	if !slices.Contains(validEnvs, cfg.Env) {
		return NewInvalidFieldError("app.env", fmt.Sprintf("invalid environment %q", cfg.Env), validEnvs)
	}

	if cfg.Rate.Limit < 0 {
		return NewInvalidFieldError("app.rate.limit", "must not be negative", nil)
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return NewInvalidFieldError("server.port", fmt.Sprintf("invalid port %d (must be 1-65535)", cfg.Port), nil)
	}
	if cfg.Timeout.Read <= 0 {
		return NewInvalidFieldError("server.timeout.read", "must be positive", nil)
	}
	if cfg.Timeout.Write <= 0 {
		return NewInvalidFieldError("server.timeout.write", "must be positive", nil)
	}
	return nil
}

func validateClover(cfg *CloverConfig) error {
	if strings.TrimSpace(cfg.Token) == "" {
		return NewMissingFieldError("clover.token", "CLOVER_AUTH_TOKEN", "clover.token")
	}
	if strings.TrimSpace(cfg.MerchantID) == "" {
		return NewMissingFieldError("clover.merchantid", "CLOVER_MERCHANT_ID", "clover.merchantid")
	}

	envs := []string{CloverSandbox, CloverProduction}
	if !slices.Contains(envs, cfg.Environment) {
		return NewInvalidFieldError("clover.environment", fmt.Sprintf("invalid value %q", cfg.Environment), envs)
	}

	flows := []string{FlowAuthorize, FlowCheckouts, FlowPaymentLink}
	if !slices.Contains(flows, cfg.Flow) {
		return NewInvalidFieldError("clover.flow", fmt.Sprintf("invalid value %q", cfg.Flow), flows)
	}

	if len(cfg.Currency) != 3 {
		return NewInvalidFieldError("clover.currency", "must be an ISO 4217 code", nil)
	}
	return nil
}

func validateRetry(cfg *RetryConfig) error {
	if cfg.MaxRetries < 0 {
		return NewInvalidFieldError("retry.maxretries", "must not be negative", nil)
	}
	if cfg.BaseDelay <= 0 {
		return NewInvalidFieldError("retry.basedelay", "must be positive", nil)
	}
	if cfg.MaxJitter < 0 {
		return NewInvalidFieldError("retry.maxjitter", "must not be negative", nil)
	}
	return nil
}

func validateCoupons(coupons []CouponConfig) error {
	seen := make(map[string]struct{}, len(coupons))
	for i, c := range coupons {
		field := fmt.Sprintf("coupons[%d]", i)
		if c.Code == "" {
			return NewInvalidFieldError(field+".code", "must not be empty", nil)
		}
		if _, dup := seen[c.Code]; dup {
			return NewInvalidFieldError(field+".code", fmt.Sprintf("duplicate code %q", c.Code), nil)
		}
		seen[c.Code] = struct{}{}

		switch c.Type {
		case CouponPercentage:
			if c.Value <= 0 || c.Value > 100 {
				return NewInvalidFieldError(field+".value", "percentage must be within (0, 100]", nil)
			}
		case CouponFixed:
			if c.Value <= 0 {
				return NewInvalidFieldError(field+".value", "must be positive", nil)
			}
		default:
			return NewInvalidFieldError(field+".type", fmt.Sprintf("invalid type %q", c.Type), []string{CouponPercentage, CouponFixed})
		}
	}
	return nil
}
