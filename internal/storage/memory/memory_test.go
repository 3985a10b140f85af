package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.UpsertCustomer(ctx, customer.Customer{
		ID: "c1", FirstName: "Ana", LastName: "Smith", Balance: d("0"), MaxOwing: d("-100"),
	}))
	require.NoError(t, s.UpsertCustomer(ctx, customer.Customer{
		ID: "c2", FirstName: "Ben", LastName: "Brown", Balance: d("-40"), MaxOwing: d("-100"),
	}))
	return s
}

func accountPlan(amount decimal.Decimal) payment.PlanFunc {
	return func(acct *customer.Customer, e *payment.Entry) error {
		if acct.Balance.Sub(amount).LessThan(acct.Limit()) {
			return payment.ErrAuthorization
		}
		e.BalanceDelta = amount.Neg()
		return nil
	}
}

func TestCustomers(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	c, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	c.Balance = d("-99")

	again, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, again.Balance.IsZero(), "Get must return a copy")

	_, err = s.Get(ctx, "nope")
	require.ErrorIs(t, err, customer.ErrNotFound)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Brown", list[0].LastName)
}

func TestCommit_OrderAndPayment(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	e := payment.Entry{
		Record: payment.Record{Purpose: payment.PurposeOrder, Method: payment.MethodAccount, Amount: d("12.50")},
		Order:  &order.Order{Status: order.StatusPending, CreatedAt: time.Now()},
	}
	r, err := s.Commit(ctx, "c1", accountPlan(d("12.50")), e)
	require.NoError(t, err)
	assert.Equal(t, "PAY1000", r.Payment.ID)
	assert.Equal(t, "ORD1000", r.Order.Number)
	assert.Equal(t, "ORD1000", r.Payment.OrderNumber)
	assert.True(t, d("-12.50").Equal(r.Balance))

	r2, err := s.Commit(ctx, "c1", accountPlan(d("1")), payment.Entry{Order: &order.Order{}})
	require.NoError(t, err)
	assert.Equal(t, "ORD1001", r2.Order.Number)
	assert.Equal(t, "PAY1001", r2.Payment.ID)

	got, err := s.Orders().Get(ctx, "ORD1000")
	require.NoError(t, err)
	assert.Equal(t, "PAY1000", got.PaymentID)
	assert.Equal(t, "c1", got.CustomerID)

	payments, err := s.ListPayments(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, payments, 2)
}

func TestCommit_PlanRejectionPersistsNothing(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	_, err := s.Commit(ctx, "c2", accountPlan(d("60.01")), payment.Entry{Order: &order.Order{}})
	require.ErrorIs(t, err, payment.ErrAuthorization)

	c, err := s.Get(ctx, "c2")
	require.NoError(t, err)
	assert.True(t, d("-40").Equal(c.Balance))
	orders, err := s.Orders().List(ctx, order.Filter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	payments, err := s.ListPayments(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestCommit_UnknownCustomer(t *testing.T) {
	s := seeded(t)
	_, err := s.Commit(context.Background(), "ghost", accountPlan(d("1")), payment.Entry{})
	require.ErrorIs(t, err, customer.ErrNotFound)
}

func TestCommit_ConcurrentNeverExceedsLimit(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Commit(ctx, "c1", accountPlan(d("7")), payment.Entry{Order: &order.Order{}})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	c, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 14, accepted)
	assert.True(t, d("-98").Equal(c.Balance), "got %s", c.Balance)

	orders, err := s.Orders().List(ctx, order.Filter{CustomerID: "c1"})
	require.NoError(t, err)
	assert.Len(t, orders, 14)
}

func TestOrders_Fulfill(t *testing.T) {
	s := seeded(t)
	ctx := context.Background()
	_, err := s.Commit(ctx, "c1", accountPlan(d("1")), payment.Entry{Order: &order.Order{Status: order.StatusPending}})
	require.NoError(t, err)

	o, err := s.Orders().Fulfill(ctx, "ORD1000")
	require.NoError(t, err)
	assert.Equal(t, order.StatusFulfilled, o.Status)

	_, err = s.Orders().Fulfill(ctx, "ORD1000")
	var already *order.AlreadyFulfilledError
	require.ErrorAs(t, err, &already)

	_, err = s.Orders().Fulfill(ctx, "ORD9999")
	var nf *order.NotFoundError
	require.ErrorAs(t, err, &nf)

	pending, err := s.Orders().List(ctx, order.Filter{Status: order.StatusPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAPIKeys(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.UpsertAPIKey(ctx, auth.APIKey{ID: "k1", KeyHash: "abc", Role: auth.RoleStaff}))

	k, err := s.FindByHash(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "k1", k.ID)

	_, err = s.FindByHash(ctx, "def")
	assert.True(t, errors.Is(err, auth.ErrKeyNotFound))
}
