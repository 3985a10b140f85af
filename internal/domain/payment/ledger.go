package payment

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
)

// Purpose says what a payment settles.
type Purpose string

const (
	// PurposeOrder pays for a checkout.
	PurposeOrder Purpose = "order"
	// PurposeBalance pays down an outstanding account balance.
	PurposeBalance Purpose = "balance"
)

// Record is a persisted payment. Card numbers are reduced to their last
// four digits and CVVs are never stored.
type Record struct {
	ID          string
	CustomerID  string
	Purpose     Purpose
	Method      Method
	Amount      decimal.Decimal
	CardType    string
	CardLast4   string
	BankName    string
	OrderNumber string
	CreatedAt   time.Time
}

// Entry describes one commit: a payment record, the balance change it
// causes, and for checkouts the order being placed.
type Entry struct {
	Record       Record
	BalanceDelta decimal.Decimal
	Order        *order.Order
}

// PlanFunc inspects the locked account state and may adjust the entry
// before it is applied. Returning an error aborts the commit.
type PlanFunc func(acct *customer.Customer, e *Entry) error

// Receipt is the result of a successful commit.
type Receipt struct {
	Payment Record
	Order   *order.Order
	Balance decimal.Decimal
}

// Ledger persists commits atomically. Implementations serialize commits per
// customer account: plan runs against the current, locked account state,
// then the balance change, the payment record and the order (if any) are
// stored together or not at all. The ledger assigns payment IDs and order
// numbers.
type Ledger interface {
	Commit(ctx context.Context, customerID string, plan PlanFunc, e Entry) (*Receipt, error)
}

// Records lists stored payments.
type Records interface {
	ListPayments(ctx context.Context, customerID string) ([]Record, error)
}
