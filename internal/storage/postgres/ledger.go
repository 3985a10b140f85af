package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
)

const lockCustomerSQL = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`

const adjustBalanceSQL = `UPDATE customers SET balance = balance + $2 WHERE id = $1 RETURNING balance`

const nextPaymentIDSQL = `SELECT 'PAY' || nextval('payment_id_seq')`

const nextOrderNumberSQL = `SELECT 'ORD' || nextval('order_number_seq')`

const paymentColumns = `id, customer_id, purpose, method, amount, card_type, card_last4,
	bank_name, order_number, created_at`

const insertPaymentSQL = `INSERT INTO payments (` + paymentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

const listPaymentsSQL = `SELECT ` + paymentColumns + ` FROM payments
	WHERE ($1 = '' OR customer_id = $1)
	ORDER BY created_at, id`

var (
	_ payment.Ledger  = (*Ledger)(nil)
	_ payment.Records = (*Ledger)(nil)
)

// Ledger commits payments in a single transaction. The customer row is
// locked with SELECT ... FOR UPDATE before the plan runs, which serialises
// commits on the same account across connections.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger returns a Ledger that uses the given pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// Commit applies e to the customer's account.
func (l *Ledger) Commit(ctx context.Context, customerID string, plan payment.PlanFunc, e payment.Entry) (*payment.Receipt, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	acct, err := scanCustomer(tx.QueryRow(ctx, lockCustomerSQL, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %s: %w", customerID, customer.ErrNotFound)
		}
		return nil, fmt.Errorf("locking customer %q: %w", customerID, err)
	}
	if err := plan(acct, &e); err != nil {
		return nil, err
	}

	r := &payment.Receipt{}
	if err := tx.QueryRow(ctx, adjustBalanceSQL, customerID, e.BalanceDelta).Scan(&r.Balance); err != nil {
		return nil, fmt.Errorf("adjusting balance: %w", err)
	}

	if err := tx.QueryRow(ctx, nextPaymentIDSQL).Scan(&e.Record.ID); err != nil {
		return nil, fmt.Errorf("allocating payment id: %w", err)
	}
	e.Record.CustomerID = customerID

	var placed *order.Order
	if e.Order != nil {
		o := *e.Order
		if err := tx.QueryRow(ctx, nextOrderNumberSQL).Scan(&o.Number); err != nil {
			return nil, fmt.Errorf("allocating order number: %w", err)
		}
		o.CustomerID = customerID
		o.PaymentID = e.Record.ID
		e.Record.OrderNumber = o.Number
		placed = &o
	}

	var orderNumber *string
	if e.Record.OrderNumber != "" {
		orderNumber = &e.Record.OrderNumber
	}
	if _, err := tx.Exec(ctx, insertPaymentSQL,
		e.Record.ID, e.Record.CustomerID, string(e.Record.Purpose), string(e.Record.Method),
		e.Record.Amount, e.Record.CardType, e.Record.CardLast4, e.Record.BankName,
		orderNumber, e.Record.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("creating payment: %w", err)
	}

	if placed != nil {
		if err := insertOrder(ctx, tx, placed); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}

	r.Payment = e.Record
	r.Order = placed
	return r, nil
}

// ListPayments returns the customer's payments, oldest first. An empty
// customerID lists every payment.
func (l *Ledger) ListPayments(ctx context.Context, customerID string) ([]payment.Record, error) {
	rows, err := l.pool.Query(ctx, listPaymentsSQL, customerID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	defer rows.Close()

	var out []payment.Record
	for rows.Next() {
		var (
			p               payment.Record
			purpose, method string
			orderNumber     *string
		)
		if err := rows.Scan(
			&p.ID, &p.CustomerID, &purpose, &method, &p.Amount, &p.CardType, &p.CardLast4,
			&p.BankName, &orderNumber, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning payment: %w", err)
		}
		p.Purpose = payment.Purpose(purpose)
		p.Method = payment.Method(method)
		if orderNumber != nil {
			p.OrderNumber = *orderNumber
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	return out, nil
}
