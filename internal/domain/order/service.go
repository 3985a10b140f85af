package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
)

// ErrInvalidRange is returned for report ranges that end before they start.
var ErrInvalidRange = errors.New("report end date is before start date")

// Service exposes the staff-facing order operations.
type Service struct {
	orders Repository
	lg     *zap.Logger
}

// NewService creates an order Service.
func NewService(orders Repository, lg *zap.Logger) *Service {
	return &Service{orders: orders, lg: lg}
}

// List returns orders matching the filter, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, errors.Errorf("unknown order status %q", f.Status)
	}
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Fulfill marks a pending order as fulfilled.
func (s *Service) Fulfill(ctx context.Context, number string) (*Order, error) {
	o, err := s.orders.Fulfill(ctx, number)
	if err != nil {
		return nil, err
	}
	s.lg.Info("Order fulfilled",
		zap.String("order", o.Number),
		zap.String("customer", o.CustomerID),
	)
	return o, nil
}

// SalesReport builds a report of all orders placed between from and to,
// inclusive.
func (s *Service) SalesReport(ctx context.Context, from, to time.Time) (*SalesReport, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, ErrInvalidRange
	}
	orders, err := s.orders.List(ctx, Filter{From: from, To: to})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	r := BuildSalesReport(from, to, orders)
	return &r, nil
}

// Popular ranks products by quantity sold across all orders.
func (s *Service) Popular(ctx context.Context) (*Popularity, error) {
	orders, err := s.orders.List(ctx, Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	p := BuildPopularity(orders)
	return &p, nil
}
