package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/order"
)

const orderColumns = `number, customer_id, customer_name, items, subtotal, discount,
	delivery_fee, total, delivery_method, payment_id, payment_method, status, created_at`

const getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`

const fulfillOrderSQL = `UPDATE orders SET status = 'fulfilled'
	WHERE number = $1 AND status = 'pending'
	RETURNING ` + orderColumns

const insertOrderSQL = `INSERT INTO orders (` + orderColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Orders
// are inserted by the Ledger.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Get returns the order with the given number.
func (r *OrderRepository) Get(ctx context.Context, number string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, getOrderSQL, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &order.NotFoundError{Number: number}
		}
		return nil, fmt.Errorf("getting order %q: %w", number, err)
	}
	return o, nil
}

// List returns matching orders, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.CustomerID != "" {
		where = append(where, "customer_id = "+arg(f.CustomerID))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= "+arg(startOfDay(f.From)))
	}
	if !f.To.IsZero() {
		where = append(where, "created_at < "+arg(startOfDay(f.To).AddDate(0, 0, 1)))
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, number DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return out, nil
}

// Fulfill marks a pending order fulfilled.
func (r *OrderRepository) Fulfill(ctx context.Context, number string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, fulfillOrderSQL, number))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("fulfilling order %q: %w", number, err)
	}
	// Either unknown or already fulfilled.
	if _, err := r.Get(ctx, number); err != nil {
		return nil, err
	}
	return nil, &order.AlreadyFulfilledError{Number: number}
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	_, err = tx.Exec(ctx, insertOrderSQL,
		o.Number, o.CustomerID, o.CustomerName, items,
		o.Summary.Subtotal, o.Summary.Discount, o.Summary.DeliveryFee, o.Summary.Total,
		string(o.DeliveryMethod), o.PaymentID, o.PaymentMethod, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.Number, err)
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o              order.Order
		items          []byte
		deliveryMethod string
		status         string
	)
	if err := row.Scan(
		&o.Number, &o.CustomerID, &o.CustomerName, &items,
		&o.Summary.Subtotal, &o.Summary.Discount, &o.Summary.DeliveryFee, &o.Summary.Total,
		&deliveryMethod, &o.PaymentID, &o.PaymentMethod, &status, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling order items: %w", err)
	}
	o.DeliveryMethod = order.DeliveryMethod(deliveryMethod)
	o.Summary.IsDelivery = o.DeliveryMethod == order.DeliveryDelivery
	o.Status = order.Status(status)
	return &o, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
