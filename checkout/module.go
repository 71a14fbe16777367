package checkout

import (
	"errors"

	"github.com/gaborage/go-checkout/coupon"
	checkouthttp "github.com/gaborage/go-checkout/http"
	"github.com/gaborage/go-checkout/logger"
	"github.com/gaborage/go-checkout/server"
)

// CouponList is the payload of the coupon listing endpoint.
type CouponList struct {
	Success bool            `json:"success"`
	Coupons []coupon.Coupon `json:"coupons"`
	Count   int             `json:"count"`
}

// Module exposes the checkout service over HTTP.
type Module struct {
	svc *Service
	log logger.Logger
}

// NewModule creates the HTTP module for svc.
func NewModule(svc *Service, log logger.Logger) *Module {
	if log == nil {
		log = logger.Nop()
	}
	return &Module{svc: svc, log: log}
}

// Name identifies the module in lifecycle logs.
func (m *Module) Name() string {
	return "checkout"
}

// Shutdown has nothing to release; sessions are not held open.
func (m *Module) Shutdown() error {
	return nil
}

// RegisterRoutes adds POST /checkout and GET /coupons to r.
func (m *Module) RegisterRoutes(hr *server.HandlerRegistry, r server.RouteRegistrar) {
	server.POST(hr, r, "/checkout", m.createCheckout)
	server.GET(hr, r, "/coupons", m.listCoupons)
}

func (m *Module) createCheckout(req Request, hc server.HandlerContext) (Result, server.IAPIError) {
	res, err := m.svc.Checkout(hc.Echo.Request().Context(), req)
	if err != nil {
		return Result{}, toAPIError(err)
	}
	return *res, nil
}

func (m *Module) listCoupons(_ struct{}, _ server.HandlerContext) (CouponList, server.IAPIError) {
	coupons := m.svc.Coupons()
	return CouponList{Success: true, Coupons: coupons, Count: len(coupons)}, nil
}

type attemptCounter interface {
	Attempts() int
}

// toAPIError maps checkout failures onto the API error envelope. Provider
// rejections become 502, exhausted retries and cancellations 503.
func toAPIError(err error) server.IAPIError {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return server.NewBadRequestError("Invalid amount provided")
	case checkouthttp.IsErrorType(err, checkouthttp.HTTPError):
		return server.NewBadGatewayError("Payment provider rejected the request").
			WithDetails("status", checkouthttp.StatusCode(err)).
			WithDetails("error", err.Error())
	case checkouthttp.IsRetryExhausted(err):
		apiErr := server.NewServiceUnavailableError("Payment provider unavailable").
			WithDetails("error", err.Error())
		var ac attemptCounter
		if errors.As(err, &ac) {
			_ = apiErr.WithDetails("attempts", ac.Attempts())
		}
		return apiErr
	case checkouthttp.IsErrorType(err, checkouthttp.CanceledError):
		return server.NewServiceUnavailableError("Payment request canceled")
	default:
		return server.NewInternalServerError("Payment processing failed").
			WithDetails("error", err.Error())
	}
}
