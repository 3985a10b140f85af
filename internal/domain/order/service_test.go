package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/pricing"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	orders     []Order
	listErr    error
	lastFilter Filter
}

func (m *mockOrderRepo) Get(_ context.Context, number string) (*Order, error) {
	for i := range m.orders {
		if m.orders[i].Number == number {
			o := m.orders[i]
			return &o, nil
		}
	}
	return nil, &NotFoundError{Number: number}
}

func (m *mockOrderRepo) List(_ context.Context, f Filter) ([]Order, error) {
	m.lastFilter = f
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []Order
	for i := range m.orders {
		if f.Match(&m.orders[i]) {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

func (m *mockOrderRepo) Fulfill(_ context.Context, number string) (*Order, error) {
	for i := range m.orders {
		if m.orders[i].Number != number {
			continue
		}
		if m.orders[i].Status == StatusFulfilled {
			return nil, &AlreadyFulfilledError{Number: number}
		}
		m.orders[i].Status = StatusFulfilled
		o := m.orders[i]
		return &o, nil
	}
	return nil, &NotFoundError{Number: number}
}

// --- Helpers ---

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func lineItem(t *testing.T, kind cart.Kind, name, price, qty string, contents ...string) cart.LineItem {
	t.Helper()
	var box []cart.BoxContent
	for _, c := range contents {
		box = append(box, cart.BoxContent{Name: c, Quantity: decimal.NewFromInt(1)})
	}
	li, err := cart.NewLineItem(kind, name, d(price), d(qty), box)
	require.NoError(t, err)
	return li
}

func newOrder(number string, day time.Time, subtotal, discount, fee string, items ...cart.LineItem) Order {
	s := pricing.Summary{Subtotal: d(subtotal), Discount: d(discount), DeliveryFee: d(fee)}
	s.Total = s.Subtotal.Sub(s.Discount).Add(s.DeliveryFee)
	return Order{
		Number:     number,
		CustomerID: "c1",
		Items:      items,
		Summary:    s,
		Status:     StatusPending,
		CreatedAt:  day,
	}
}

// --- Tests ---

func TestFulfill(t *testing.T) {
	day := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &mockOrderRepo{orders: []Order{newOrder("ORD1000", day, "10", "0", "0")}}
	svc := NewService(repo, zap.NewNop())

	o, err := svc.Fulfill(context.Background(), "ORD1000")
	require.NoError(t, err)
	assert.Equal(t, StatusFulfilled, o.Status)

	_, err = svc.Fulfill(context.Background(), "ORD1000")
	var afErr *AlreadyFulfilledError
	require.ErrorAs(t, err, &afErr)

	_, err = svc.Fulfill(context.Background(), "ORD9999")
	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "ORD9999", nfErr.Number)
}

func TestList_UnknownStatus(t *testing.T) {
	svc := NewService(&mockOrderRepo{}, zap.NewNop())
	_, err := svc.List(context.Background(), Filter{Status: "shipped"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown order status")
}

func TestList_RepoError(t *testing.T) {
	svc := NewService(&mockOrderRepo{listErr: errors.New("db down")}, zap.NewNop())
	_, err := svc.List(context.Background(), Filter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list orders")
}

func TestSalesReport(t *testing.T) {
	mar1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	mar2 := time.Date(2025, 3, 2, 23, 59, 0, 0, time.UTC)
	mar5 := time.Date(2025, 3, 5, 8, 0, 0, 0, time.UTC)

	repo := &mockOrderRepo{orders: []Order{
		newOrder("ORD1000", mar1, "12.34", "1.23", "10.00"),
		newOrder("ORD1001", mar2, "20.00", "0", "0"),
		newOrder("ORD1002", mar5, "99.00", "0", "10.00"),
	}}
	svc := NewService(repo, zap.NewNop())

	r, err := svc.SalesReport(context.Background(), mar1, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, r.Orders, 2)
	assert.True(t, d("31.11").Equal(r.TotalSales), "delivery fees are excluded, got %s", r.TotalSales)

	_, err = svc.SalesReport(context.Background(), mar5, mar1)
	require.Error(t, err)
}

func TestPopular(t *testing.T) {
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &mockOrderRepo{orders: []Order{
		newOrder("ORD1000", day, "0", "0", "0",
			lineItem(t, cart.KindWeight, "Carrot", "2", "1.5"),
			lineItem(t, cart.KindUnit, "Corn", "1", "2"),
		),
		newOrder("ORD1001", day, "0", "0", "0",
			lineItem(t, cart.KindBox, "Small Box", "20", "2", "Carrot", "Potato"),
			lineItem(t, cart.KindBox, "Large Box", "40", "1", "Corn"),
		),
	}}
	svc := NewService(repo, zap.NewNop())

	p, err := svc.Popular(context.Background())
	require.NoError(t, err)

	require.Len(t, p.Vegetables, 3)
	assert.Equal(t, "Carrot", p.Vegetables[0].Name)
	assert.True(t, d("3.5").Equal(p.Vegetables[0].Quantity))
	assert.Equal(t, "Corn", p.Vegetables[1].Name)
	assert.True(t, d("3").Equal(p.Vegetables[1].Quantity))
	assert.Equal(t, "Potato", p.Vegetables[2].Name)

	require.Len(t, p.Boxes, 2)
	assert.Equal(t, "Small Box", p.Boxes[0].Name)
	assert.Equal(t, "Large Box", p.Boxes[1].Name)
}

func TestFilterMatch(t *testing.T) {
	o := newOrder("ORD1", time.Date(2025, 3, 2, 15, 0, 0, 0, time.UTC), "1", "0", "0")

	assert.True(t, Filter{}.Match(&o))
	assert.True(t, Filter{Status: StatusPending, CustomerID: "c1"}.Match(&o))
	assert.False(t, Filter{Status: StatusFulfilled}.Match(&o))
	assert.False(t, Filter{CustomerID: "c2"}.Match(&o))
	assert.True(t, Filter{From: time.Date(2025, 3, 2, 23, 0, 0, 0, time.UTC)}.Match(&o), "From is a calendar day")
	assert.False(t, Filter{From: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)}.Match(&o))
	assert.False(t, Filter{To: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}.Match(&o))
}

func TestMethodFor(t *testing.T) {
	assert.Equal(t, DeliveryDelivery, MethodFor(pricing.Summary{IsDelivery: true}))
	assert.Equal(t, DeliveryPickup, MethodFor(pricing.Summary{}))
}
