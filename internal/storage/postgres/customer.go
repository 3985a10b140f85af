package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/internal/domain/customer"
)

const customerColumns = `id, first_name, last_name, username, address, distance_km,
	kind, discount_rate, balance, max_owing`

const getCustomerSQL = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

const listCustomersSQL = `SELECT ` + customerColumns + ` FROM customers
	ORDER BY lower(last_name), lower(first_name), id`

const upsertCustomerSQL = `INSERT INTO customers (` + customerColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (id) DO UPDATE SET
		first_name = EXCLUDED.first_name,
		last_name = EXCLUDED.last_name,
		username = EXCLUDED.username,
		address = EXCLUDED.address,
		distance_km = EXCLUDED.distance_km,
		kind = EXCLUDED.kind,
		discount_rate = EXCLUDED.discount_rate,
		balance = EXCLUDED.balance,
		max_owing = EXCLUDED.max_owing`

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Get returns a customer by id.
func (r *CustomerRepository) Get(ctx context.Context, id string) (*customer.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, getCustomerSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("customer %s: %w", id, customer.ErrNotFound)
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return c, nil
}

// List returns all customers ordered by name.
func (r *CustomerRepository) List(ctx context.Context) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var out []customer.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return out, nil
}

// UpsertCustomer inserts or replaces a customer.
func (r *CustomerRepository) UpsertCustomer(ctx context.Context, c customer.Customer) error {
	_, err := r.pool.Exec(ctx, upsertCustomerSQL,
		c.ID, c.FirstName, c.LastName, c.Username, c.Address, c.DistanceKM,
		string(c.Kind), c.DiscountRate, c.Balance, c.MaxOwing,
	)
	if err != nil {
		return fmt.Errorf("upserting customer %q: %w", c.ID, err)
	}
	return nil
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var (
		c    customer.Customer
		kind string
	)
	if err := row.Scan(
		&c.ID, &c.FirstName, &c.LastName, &c.Username, &c.Address, &c.DistanceKM,
		&kind, &c.DiscountRate, &c.Balance, &c.MaxOwing,
	); err != nil {
		return nil, err
	}
	c.Kind = customer.Kind(kind)
	return &c, nil
}
