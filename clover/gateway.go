// Package clover opens hosted checkouts with the Clover payments API. Every
// call goes through the retrying executor in the http package.
package clover

import (
	"context"
	"fmt"
	"math"
	nethttp "net/http"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/gaborage/go-checkout/config"
	checkouthttp "github.com/gaborage/go-checkout/http"
	"github.com/gaborage/go-checkout/logger"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	onlineSource         = "online"
	lineItemName         = "Order Total"
)

// Gateway talks to Clover on behalf of one merchant.
type Gateway struct {
	cfg    Config
	client checkouthttp.Client
	log    logger.Logger
	group  singleflight.Group
	newKey func() string
}

// NewGateway creates a gateway using client for transport.
func NewGateway(cfg Config, client checkouthttp.Client, log logger.Logger) *Gateway {
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{
		cfg:    cfg,
		client: client,
		log:    log,
		newKey: uuid.NewString,
	}
}

// Flow returns the configured checkout flow.
func (g *Gateway) Flow() string {
	return g.cfg.Flow
}

// CreateSession opens a hosted checkout using the configured flow.
func (g *Gateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	var (
		session *Session
		err     error
	)
	switch g.cfg.Flow {
	case config.FlowAuthorize, "":
		session, err = g.authorize(ctx, req)
	case config.FlowCheckouts:
		session, err = g.hostedCheckout(ctx, req)
	case config.FlowPaymentLink:
		session, err = g.paymentLink(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlow, g.cfg.Flow)
	}
	if err != nil {
		return nil, err
	}

	g.log.WithContext(ctx).Info().
		Str("flow", session.Flow).
		Str("payment_id", session.ID).
		Int64("amount_cents", req.FinalCents).
		Msg("Clover checkout session created")
	return session, nil
}

// authorize creates a payment through /pay/authorize and points the shopper
// at the hosted pay page for it.
func (g *Gateway) authorize(ctx context.Context, req SessionRequest) (*Session, error) {
	payload := authorizePayload{
		Amount:      req.FinalCents,
		Currency:    g.cfg.Currency,
		Source:      g.cfg.MerchantID,
		RedirectURL: g.cfg.RedirectURL,
		CancelURL:   g.cfg.CancelURL,
		Email:       req.Customer.Email,
		Name:        req.Customer.Name,
	}

	resp, err := post[authorizeResponse](ctx, g, g.cfg.BaseURL+"/pay/authorize", payload)
	if err != nil {
		return nil, fmt.Errorf("clover authorize: %w", err)
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("clover authorize: %w: missing payment id", ErrIncompleteResponse)
	}

	return &Session{
		ID:   resp.ID,
		URL:  g.cfg.CheckoutURL + "/pay?payment_id=" + url.QueryEscape(resp.ID),
		Flow: config.FlowAuthorize,
	}, nil
}

// hostedCheckout creates a checkout through /v1/checkouts with a single
// line item for the order total.
func (g *Gateway) hostedCheckout(ctx context.Context, req SessionRequest) (*Session, error) {
	description := "No discount"
	if req.CouponCode != "" {
		description = "Discount applied: " + req.CouponCode
	}
	payload := checkoutPayload{
		Amount:   req.FinalCents,
		Currency: g.cfg.Currency,
		Items: []checkoutItem{{
			Name:        lineItemName,
			Price:       req.FinalCents,
			Description: description,
		}},
		Source: onlineSource,
	}

	resp, err := post[checkoutResponse](ctx, g, g.cfg.BaseURL+"/v1/checkouts", payload)
	if err != nil {
		return nil, fmt.Errorf("clover checkouts: %w", err)
	}
	if resp.Href == "" {
		return nil, fmt.Errorf("clover checkouts: %w: missing href", ErrIncompleteResponse)
	}
	return &Session{ID: resp.ID, URL: resp.Href, Flow: config.FlowCheckouts}, nil
}

// paymentLink builds an order with a line item and optional discount, then
// requests a payment link for it.
func (g *Gateway) paymentLink(ctx context.Context, req SessionRequest) (*Session, error) {
	merchantURL := g.merchantURL()

	o, err := post[order](ctx, g, merchantURL+"/orders", struct{}{})
	if err != nil {
		return nil, fmt.Errorf("clover create order: %w", err)
	}
	if o.ID == "" {
		return nil, fmt.Errorf("clover create order: %w: missing order id", ErrIncompleteResponse)
	}
	orderURL := merchantURL + "/orders/" + url.PathEscape(o.ID)

	item := lineItemPayload{Name: lineItemName, Price: req.OriginalCents, Quantity: 1}
	if _, err := post[map[string]any](ctx, g, orderURL+"/line_items", item); err != nil {
		return nil, fmt.Errorf("clover add line item: %w", err)
	}

	if discount, ok := discountFor(req); ok {
		if _, err := post[map[string]any](ctx, g, orderURL+"/discounts", discount); err != nil {
			return nil, fmt.Errorf("clover add discount: %w", err)
		}
	}

	link, err := post[paymentLinkResponse](ctx, g, merchantURL+"/pay/link", paymentLinkPayload{
		Amount:       req.FinalCents,
		OrderID:      o.ID,
		Currency:     g.cfg.Currency,
		ReceiptEmail: receiptEmail(req.Customer.Email, g.cfg.ReceiptEmail),
	})
	if err != nil {
		return nil, fmt.Errorf("clover payment link: %w", err)
	}
	if link.URL == "" {
		return nil, fmt.Errorf("clover payment link: %w: missing url", ErrIncompleteResponse)
	}

	id := link.ID
	if id == "" {
		id = o.ID
	}
	return &Session{ID: id, URL: link.URL, Flow: config.FlowPaymentLink}, nil
}

// discountFor describes the order discount. Percentages are whole percent,
// fixed discounts a negative amount in cents.
func discountFor(req SessionRequest) (discountPayload, bool) {
	if req.DiscountCents <= 0 {
		return discountPayload{}, false
	}
	if req.DiscountPercent > 0 {
		return discountPayload{
			Name:       fmt.Sprintf("%g%% Off", req.DiscountPercent),
			Percentage: int64(math.Round(req.DiscountPercent)),
		}, true
	}
	name := req.CouponCode
	if name == "" {
		name = "Discount"
	}
	return discountPayload{Name: name, Amount: -req.DiscountCents}, true
}

func receiptEmail(customer, fallback string) string {
	if customer != "" {
		return customer
	}
	return fallback
}

// Merchant fetches the merchant resource. Concurrent callers share one
// in-flight request.
func (g *Gateway) Merchant(ctx context.Context) (*Merchant, error) {
	v, err, _ := g.group.Do(g.cfg.MerchantID, func() (any, error) {
		req := &checkouthttp.Request{
			Method:  nethttp.MethodGet,
			URL:     g.merchantURL(),
			Headers: g.headers(""),
		}
		m, err := checkouthttp.DoJSON[Merchant](ctx, g.client, req, g.cfg.Retry)
		if err != nil {
			return nil, err
		}
		return &m, nil
	})
	if err != nil {
		return nil, fmt.Errorf("clover merchant: %w", err)
	}
	return v.(*Merchant), nil
}

// Check reports whether the merchant resource is reachable with the
// configured credentials. It is meant for readiness probes.
func (g *Gateway) Check(ctx context.Context) error {
	_, err := g.Merchant(ctx)
	return err
}

func (g *Gateway) merchantURL() string {
	return g.cfg.BaseURL + "/v3/merchants/" + url.PathEscape(g.cfg.MerchantID)
}

func (g *Gateway) headers(idempotencyKey string) map[string]string {
	h := map[string]string{
		"Authorization": "Bearer " + g.cfg.Token,
		"Accept":        "application/json",
	}
	if idempotencyKey != "" {
		h[headerIdempotencyKey] = idempotencyKey
	}
	return h
}

// post sends payload as JSON. One idempotency key is generated per logical
// call and reused by every retry of it.
func post[T any](ctx context.Context, g *Gateway, target string, payload any) (T, error) {
	req, err := checkouthttp.JSONRequest(nethttp.MethodPost, target, payload, g.headers(g.newKey()))
	if err != nil {
		var zero T
		return zero, err
	}
	return checkouthttp.DoJSON[T](ctx, g.client, req, g.cfg.Retry)
}
