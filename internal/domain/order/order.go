package order

import (
	"context"
	"fmt"
	"time"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/pricing"
)

// Status is the fulfilment state of an order.
type Status string

const (
	// StatusPending orders are paid and waiting to be fulfilled by staff.
	StatusPending Status = "pending"
	// StatusFulfilled orders have been handed over or delivered.
	StatusFulfilled Status = "fulfilled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusFulfilled
}

// DeliveryMethod records how the customer receives the order.
type DeliveryMethod string

const (
	// DeliveryPickup orders are collected from the depot.
	DeliveryPickup DeliveryMethod = "pickup"
	// DeliveryDelivery orders are delivered for a flat fee.
	DeliveryDelivery DeliveryMethod = "delivery"
)

// MethodFor returns the delivery method implied by a summary.
func MethodFor(s pricing.Summary) DeliveryMethod {
	if s.IsDelivery {
		return DeliveryDelivery
	}
	return DeliveryPickup
}

// Order is a committed, paid order.
type Order struct {
	Number         string
	CustomerID     string
	CustomerName   string
	Items          []cart.LineItem
	Summary        pricing.Summary
	DeliveryMethod DeliveryMethod
	PaymentID      string
	PaymentMethod  string
	Status         Status
	CreatedAt      time.Time
}

// NotFoundError is returned when an order number is unknown.
type NotFoundError struct {
	Number string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %s not found", e.Number)
}

// AlreadyFulfilledError is returned when fulfilling an order twice.
type AlreadyFulfilledError struct {
	Number string
}

func (e *AlreadyFulfilledError) Error() string {
	return fmt.Sprintf("order %s is already fulfilled", e.Number)
}

// Filter narrows order listings. Zero values match everything.
type Filter struct {
	CustomerID string
	Status     Status
	From       time.Time
	To         time.Time
}

// Match reports whether o satisfies the filter. From and To are inclusive
// calendar days.
func (f Filter) Match(o *Order) bool {
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	day := truncateDay(o.CreatedAt)
	if !f.From.IsZero() && day.Before(truncateDay(f.From)) {
		return false
	}
	if !f.To.IsZero() && day.After(truncateDay(f.To)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Repository provides access to committed orders. Orders are created by the
// payment ledger as part of a commit.
type Repository interface {
	Get(ctx context.Context, number string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	// Fulfill moves a pending order to fulfilled. It returns
	// *NotFoundError or *AlreadyFulfilledError.
	Fulfill(ctx context.Context, number string) (*Order, error)
}
