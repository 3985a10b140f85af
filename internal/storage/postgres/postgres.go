// Package postgres implements storage on PostgreSQL with pgx. Queries are
// plain SQL against the embedded schema.
package postgres

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront/db"
	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/customer"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, db.Schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Store bundles the repositories sharing one pool.
type Store struct {
	Customers *CustomerRepository
	Orders    *OrderRepository
	Ledger    *Ledger
	APIKeys   *APIKeyRepository
}

// NewStore returns repositories that use pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Customers: NewCustomerRepository(pool),
		Orders:    NewOrderRepository(pool),
		Ledger:    NewLedger(pool),
		APIKeys:   NewAPIKeyRepository(pool),
	}
}

// UpsertCustomer inserts or replaces a customer.
func (s *Store) UpsertCustomer(ctx context.Context, c customer.Customer) error {
	return s.Customers.UpsertCustomer(ctx, c)
}

// UpsertAPIKey inserts or replaces an API key.
func (s *Store) UpsertAPIKey(ctx context.Context, k auth.APIKey) error {
	return s.APIKeys.UpsertAPIKey(ctx, k)
}
