// Package coupon holds the coupon catalog and the discount arithmetic used
// at checkout. All amounts are integer cents.
package coupon

import (
	"math"
	"slices"
	"strings"

	"github.com/gaborage/go-checkout/config"
)

// Type selects how Value is interpreted.
type Type string

const (
	// Percentage takes Value percent off the amount.
	Percentage Type = config.CouponPercentage
	// Fixed takes Value dollars off the amount.
	Fixed Type = config.CouponFixed
)

// Coupon is a discount code offered to shoppers.
type Coupon struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Type        Type    `json:"type"`
	Value       float64 `json:"value"`
	Active      bool    `json:"active"`
}

// Discount is the result of applying a coupon to an amount.
type Discount struct {
	OriginalCents int64
	DiscountCents int64
	FinalCents    int64
}

// Apply computes the discount of c on amountCents. A nil coupon or one of an
// unknown type leaves the amount unchanged. The final amount never goes below
// zero.
func Apply(amountCents int64, c *Coupon) Discount {
	d := Discount{OriginalCents: amountCents, FinalCents: amountCents}
	if c == nil || amountCents <= 0 {
		return d
	}

	switch c.Type {
	case Percentage:
		d.DiscountCents = int64(math.Round(float64(amountCents) * c.Value / 100))
	case Fixed:
		d.DiscountCents = int64(math.Round(c.Value * 100))
	default:
		return d
	}

	d.FinalCents = max(0, amountCents-d.DiscountCents)
	return d
}

// Catalog looks up coupons by code.
type Catalog interface {
	// Find returns the active coupon with exactly this code.
	Find(code string) (Coupon, bool)
	// Active lists active coupons in catalog order.
	Active() []Coupon
}

// StaticCatalog is an immutable in-memory Catalog.
type StaticCatalog struct {
	coupons []Coupon
	byCode  map[string]int
}

// NewStaticCatalog copies coupons into a new catalog. Later duplicates of a
// code are ignored.
func NewStaticCatalog(coupons []Coupon) *StaticCatalog {
	c := &StaticCatalog{
		coupons: make([]Coupon, 0, len(coupons)),
		byCode:  make(map[string]int, len(coupons)),
	}
	for _, cp := range coupons {
		if _, dup := c.byCode[cp.Code]; dup || cp.Code == "" {
			continue
		}
		c.byCode[cp.Code] = len(c.coupons)
		c.coupons = append(c.coupons, cp)
	}
	return c
}

// FromConfig builds a catalog from configured coupons.
func FromConfig(cfgs []config.CouponConfig) *StaticCatalog {
	coupons := make([]Coupon, 0, len(cfgs))
	for _, cc := range cfgs {
		coupons = append(coupons, Coupon{
			Code:        cc.Code,
			Name:        cc.Name,
			Description: cc.Description,
			Type:        Type(cc.Type),
			Value:       cc.Value,
			Active:      cc.Active,
		})
	}
	return NewStaticCatalog(coupons)
}

// Find implements Catalog. Codes are case-sensitive; surrounding whitespace
// is ignored.
func (c *StaticCatalog) Find(code string) (Coupon, bool) {
	i, ok := c.byCode[strings.TrimSpace(code)]
	if !ok || !c.coupons[i].Active {
		return Coupon{}, false
	}
	return c.coupons[i], true
}

// Active implements Catalog.
func (c *StaticCatalog) Active() []Coupon {
	return slices.DeleteFunc(slices.Clone(c.coupons), func(cp Coupon) bool { return !cp.Active })
}

// Defaults returns the stock SAVE10, SAVE20 and SAVE50 coupons.
func Defaults() []Coupon {
	return []Coupon{
		{Code: "SAVE10", Name: "Save 10%", Description: "10% off your order", Type: Percentage, Value: 10, Active: true},
		{Code: "SAVE20", Name: "Save 20%", Description: "20% off your order", Type: Percentage, Value: 20, Active: true},
		{Code: "SAVE50", Name: "Save 50%", Description: "50% off your order", Type: Percentage, Value: 50, Active: true},
	}
}
