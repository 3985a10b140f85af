package checkout

import (
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
	"github.com/xenking/storefront/internal/domain/pricing"
)

// Transaction is one checkout attempt. It owns a snapshot of the cart and
// the summary computed from it; later cart changes do not affect it.
type Transaction struct {
	ID         uuid.UUID
	Customer   customer.Customer
	Items      []cart.LineItem
	Summary    pricing.Summary
	State      payment.State
	Instrument *payment.Instrument
	// Order is set once the transaction commits.
	Order     *order.Order
	CreatedAt time.Time

	busy bool
}

// clone returns a copy safe to hand out of the registry.
func (t *Transaction) clone() Transaction {
	c := *t
	c.Items = slices.Clone(t.Items)
	if t.Instrument != nil {
		in := *t.Instrument
		c.Instrument = &in
	}
	if t.Order != nil {
		o := *t.Order
		c.Order = &o
	}
	c.busy = false
	return c
}

// transition moves the transaction to next if the state machine allows it.
func (t *Transaction) transition(next payment.State) bool {
	if !t.State.CanTransitionTo(next) {
		return false
	}
	t.State = next
	return true
}
