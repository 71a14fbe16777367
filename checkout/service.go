// Package checkout implements the checkout use case: price an order with an
// optional coupon and open a hosted payment session for the final amount.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/gaborage/go-checkout/clover"
	"github.com/gaborage/go-checkout/coupon"
	"github.com/gaborage/go-checkout/logger"
)

// Largest amount whose cent value a float64 still represents exactly.
const maxAmountCents = 1 << 53

// ErrInvalidAmount is returned for missing, non-positive or non-finite amounts.
var ErrInvalidAmount = errors.New("checkout: invalid amount")

// SessionCreator opens hosted payment sessions. *clover.Gateway implements it.
type SessionCreator interface {
	CreateSession(ctx context.Context, req clover.SessionRequest) (*clover.Session, error)
}

// CustomerData is optional shopper information forwarded to the provider.
type CustomerData struct {
	Email string `json:"email" validate:"omitempty,email,max=254"`
	Name  string `json:"name" validate:"max=200"`
}

// Request is a checkout request. Amount is in dollars.
type Request struct {
	Amount       float64       `json:"amount"`
	Coupon       string        `json:"coupon" validate:"omitempty,coupon_code"`
	CustomerData *CustomerData `json:"customerData"`
}

// Result describes an opened checkout. Amounts are in dollars.
type Result struct {
	CheckoutURL    string  `json:"checkoutUrl"`
	OriginalAmount float64 `json:"originalAmount"`
	DiscountAmount float64 `json:"discountAmount"`
	FinalAmount    float64 `json:"finalAmount"`
	CouponApplied  *string `json:"couponApplied"`
	PaymentID      string  `json:"paymentId"`
}

// Service prices orders and opens payment sessions.
type Service struct {
	catalog  coupon.Catalog
	sessions SessionCreator
	log      logger.Logger
}

// NewService creates a checkout service.
func NewService(catalog coupon.Catalog, sessions SessionCreator, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{catalog: catalog, sessions: sessions, log: log}
}

// Checkout applies the coupon named in req, when it exists and is active,
// and opens a payment session for the discounted amount. An unknown coupon
// is not an error: the order is simply not discounted.
func (s *Service) Checkout(ctx context.Context, req Request) (*Result, error) {
	cents, err := toCents(req.Amount)
	if err != nil {
		return nil, err
	}

	var applied *coupon.Coupon
	if req.Coupon != "" {
		if c, ok := s.catalog.Find(req.Coupon); ok {
			applied = &c
		}
	}
	discount := coupon.Apply(cents, applied)

	sessionReq := clover.SessionRequest{
		OriginalCents: discount.OriginalCents,
		DiscountCents: discount.DiscountCents,
		FinalCents:    discount.FinalCents,
	}
	if applied != nil {
		sessionReq.CouponCode = applied.Code
		if applied.Type == coupon.Percentage {
			sessionReq.DiscountPercent = applied.Value
		}
	}
	if req.CustomerData != nil {
		sessionReq.Customer = clover.Customer{Email: req.CustomerData.Email, Name: req.CustomerData.Name}
	}

	session, err := s.sessions.CreateSession(ctx, sessionReq)
	if err != nil {
		s.log.WithContext(ctx).Error().
			Err(err).
			Int64("amount_cents", discount.FinalCents).
			Msg("Payment session creation failed")
		return nil, err
	}

	res := &Result{
		CheckoutURL:    session.URL,
		OriginalAmount: toDollars(discount.OriginalCents),
		DiscountAmount: toDollars(discount.DiscountCents),
		FinalAmount:    toDollars(discount.FinalCents),
		PaymentID:      session.ID,
	}
	if applied != nil {
		code := applied.Code
		res.CouponApplied = &code
	}
	return res, nil
}

// Coupons lists the coupons currently offered.
func (s *Service) Coupons() []coupon.Coupon {
	return s.catalog.Active()
}

func toCents(amount float64) (int64, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, ErrInvalidAmount
	}
	cents := math.Round(amount * 100)
	if cents < 1 || cents > maxAmountCents {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, amount)
	}
	return int64(cents), nil
}

func toDollars(cents int64) float64 {
	return float64(cents) / 100
}
