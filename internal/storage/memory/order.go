package memory

import (
	"context"

	"github.com/xenking/storefront/internal/domain/order"
)

// Orders returns the order repository backed by the Store.
func (s *Store) Orders() *Orders {
	return &Orders{s: s}
}

// Orders is the order repository view of a Store.
type Orders struct {
	s *Store
}

var _ order.Repository = (*Orders)(nil)

// Get returns the order with the given number.
func (r *Orders) Get(_ context.Context, number string) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.byNumber[number]
	if !ok {
		return nil, &order.NotFoundError{Number: number}
	}
	return cloneOrder(o), nil
}

// List returns matching orders, newest first.
func (r *Orders) List(_ context.Context, f order.Filter) ([]order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []order.Order
	for i := len(r.s.orders) - 1; i >= 0; i-- {
		if o := r.s.orders[i]; f.Match(o) {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

// Fulfill marks a pending order fulfilled.
func (r *Orders) Fulfill(_ context.Context, number string) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.byNumber[number]
	if !ok {
		return nil, &order.NotFoundError{Number: number}
	}
	if o.Status == order.StatusFulfilled {
		return nil, &order.AlreadyFulfilledError{Number: number}
	}
	o.Status = order.StatusFulfilled
	return cloneOrder(o), nil
}
