package checkout

import (
	"context"

	"github.com/xenking/storefront/internal/domain/order"
)

// Observer is notified after a checkout commits. Notifications run after
// the commit is durable and cannot undo it.
type Observer interface {
	OnCheckoutCommitted(ctx context.Context, o *order.Order)
	OnCartCleared(ctx context.Context, customerID string)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	CheckoutCommitted func(ctx context.Context, o *order.Order)
	CartCleared       func(ctx context.Context, customerID string)
}

func (f ObserverFuncs) OnCheckoutCommitted(ctx context.Context, o *order.Order) {
	if f.CheckoutCommitted != nil {
		f.CheckoutCommitted(ctx, o)
	}
}

func (f ObserverFuncs) OnCartCleared(ctx context.Context, customerID string) {
	if f.CartCleared != nil {
		f.CartCleared(ctx, customerID)
	}
}

var _ Observer = ObserverFuncs{}
