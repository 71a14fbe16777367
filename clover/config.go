package clover

import (
	"strings"
	"time"

	"github.com/gaborage/go-checkout/config"
	checkouthttp "github.com/gaborage/go-checkout/http"
)

// Base URLs per Clover environment.
const (
	SandboxAPIURL         = "https://sandbox.dev.clover.com"
	ProductionAPIURL      = "https://api.clover.com"
	SandboxCheckoutURL    = "https://checkout.sandbox.dev.clover.com"
	ProductionCheckoutURL = "https://checkout.clover.com"
)

// Config is the resolved gateway configuration.
type Config struct {
	Token        string
	MerchantID   string
	BaseURL      string
	CheckoutURL  string
	RedirectURL  string
	CancelURL    string
	ReceiptEmail string
	Currency     string
	Flow         string
	Retry        checkouthttp.RetryPolicy
	Timeout      time.Duration
}

// NewConfig resolves URLs for the configured environment. Explicit base URLs
// win over the environment defaults.
func NewConfig(cc config.CloverConfig, rc config.RetryConfig) Config {
	api, checkout := SandboxAPIURL, SandboxCheckoutURL
	if cc.Environment == config.CloverProduction {
		api, checkout = ProductionAPIURL, ProductionCheckoutURL
	}
	if cc.BaseURL != "" {
		api = cc.BaseURL
	}
	if cc.CheckoutURL != "" {
		checkout = cc.CheckoutURL
	}

	return Config{
		Token:        cc.Token,
		MerchantID:   cc.MerchantID,
		BaseURL:      strings.TrimRight(api, "/"),
		CheckoutURL:  strings.TrimRight(checkout, "/"),
		RedirectURL:  cc.RedirectURL,
		CancelURL:    cc.CancelURL,
		ReceiptEmail: cc.ReceiptEmail,
		Currency:     cc.Currency,
		Flow:         cc.Flow,
		Timeout:      cc.Timeout,
		Retry: checkouthttp.RetryPolicy{
			MaxRetries: rc.MaxRetries,
			BaseDelay:  rc.BaseDelay,
			MaxJitter:  rc.MaxJitter,
		},
	}
}
