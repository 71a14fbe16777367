package clover

import "errors"

var (
	// ErrUnknownFlow is returned for a flow the gateway does not implement.
	ErrUnknownFlow = errors.New("clover: unknown checkout flow")
	// ErrIncompleteResponse means Clover answered 2xx without the field we need.
	ErrIncompleteResponse = errors.New("clover: incomplete response")
)

// Customer is optional shopper data forwarded to Clover.
type Customer struct {
	Email string
	Name  string
}

// SessionRequest carries everything needed to open a hosted checkout.
type SessionRequest struct {
	OriginalCents int64
	DiscountCents int64
	FinalCents    int64
	// CouponCode is empty when no coupon applied.
	CouponCode string
	// DiscountPercent is set for percentage coupons.
	DiscountPercent float64
	Customer        Customer
}

// Session is an opened hosted checkout.
type Session struct {
	ID   string
	URL  string
	Flow string
}

// Merchant is the subset of the merchant resource used for readiness.
type Merchant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type authorizePayload struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Source      string `json:"source"`
	RedirectURL string `json:"redirect_url"`
	CancelURL   string `json:"cancel_url"`
	Email       string `json:"email"`
	Name        string `json:"name"`
}

type authorizeResponse struct {
	ID string `json:"id"`
}

type checkoutItem struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
}

type checkoutPayload struct {
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
	Items    []checkoutItem `json:"items"`
	Source   string         `json:"source"`
}

type checkoutResponse struct {
	ID   string `json:"id"`
	Href string `json:"href"`
}

type order struct {
	ID string `json:"id"`
}

type lineItemPayload struct {
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

type discountPayload struct {
	Name       string `json:"name"`
	Percentage int64  `json:"percentage,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
}

type paymentLinkPayload struct {
	Amount       int64  `json:"amount"`
	OrderID      string `json:"orderId"`
	Currency     string `json:"currency"`
	ReceiptEmail string `json:"receiptEmail"`
}

type paymentLinkResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
