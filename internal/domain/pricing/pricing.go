// Package pricing derives order summaries (subtotal, discount, delivery fee
// and total) from cart snapshots.
package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/money"
)

// ErrEmptyCart is returned when a summary is requested for an empty cart.
var ErrEmptyCart = errors.New("cart is empty")

// DeliveryUnavailableError indicates the customer lives outside the
// delivery radius.
type DeliveryUnavailableError struct {
	DistanceKM int
	RadiusKM   int
}

func (e *DeliveryUnavailableError) Error() string {
	if e.DistanceKM < 0 {
		return "delivery unavailable: address has no registered distance"
	}
	return fmt.Sprintf("delivery unavailable: %d km is beyond the %d km delivery radius", e.DistanceKM, e.RadiusKM)
}

// ErrDeliveryUnavailable matches any *DeliveryUnavailableError via errors.Is.
var ErrDeliveryUnavailable = errors.New("delivery unavailable")

// Is lets errors.Is(err, ErrDeliveryUnavailable) match.
func (e *DeliveryUnavailableError) Is(target error) bool {
	return target == ErrDeliveryUnavailable
}

// Rules holds the business constants used when pricing an order.
type Rules struct {
	DeliveryFee      decimal.Decimal
	DeliveryRadiusKM int
}

// DefaultRules mirrors the storefront's published terms: a flat $10.00
// delivery fee within 20 km.
func DefaultRules() Rules {
	return Rules{
		DeliveryFee:      decimal.RequireFromString("10.00"),
		DeliveryRadiusKM: 20,
	}
}

// Summary is the priced breakdown of an order.
// Total == Subtotal - Discount + DeliveryFee.
type Summary struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
	IsDelivery  bool            `json:"is_delivery"`
}

// SalesAmount is the amount earned on goods: subtotal less discount.
func (s Summary) SalesAmount() decimal.Decimal {
	return money.Round(s.Subtotal.Sub(s.Discount))
}

// Calculator computes order summaries under a fixed set of rules.
type Calculator struct {
	rules Rules
}

// NewCalculator returns a Calculator using the given rules.
func NewCalculator(rules Rules) *Calculator {
	return &Calculator{rules: rules}
}

// Rules returns the calculator's pricing rules.
func (c *Calculator) Rules() Rules {
	return c.rules
}

// Compute prices a cart snapshot for a customer. Every intermediate amount
// is rounded to cents so the summary matches what is displayed.
func (c *Calculator) Compute(items []cart.LineItem, cust *customer.Customer, isDelivery bool) (Summary, error) {
	if len(items) == 0 {
		return Summary{}, ErrEmptyCart
	}

	// Eligibility is checked before any fee is computed.
	if isDelivery && !cust.CanDeliver(c.rules.DeliveryRadiusKM) {
		return Summary{}, &DeliveryUnavailableError{
			DistanceKM: cust.DistanceKM,
			RadiusKM:   c.rules.DeliveryRadiusKM,
		}
	}

	amounts := make([]decimal.Decimal, 0, len(items))
	for _, item := range items {
		amounts = append(amounts, item.Subtotal)
	}
	subtotal := money.Sum(amounts...)

	discount := money.Mul(subtotal, cust.Rate())

	fee := decimal.Zero
	if isDelivery {
		fee = money.Round(c.rules.DeliveryFee)
	}

	total := money.Round(money.Round(subtotal.Sub(discount)).Add(fee))

	return Summary{
		Subtotal:    subtotal,
		Discount:    discount,
		DeliveryFee: fee,
		Total:       total,
		IsDelivery:  isDelivery,
	}, nil
}
