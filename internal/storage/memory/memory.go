// Package memory implements storage in process memory. It backs the service
// when no database is configured and mirrors the PostgreSQL semantics.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/xenking/storefront/internal/domain/auth"
	"github.com/xenking/storefront/internal/domain/customer"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/payment"
)

const firstSequence = 1000

var (
	_ customer.Repository = (*Store)(nil)
	_ payment.Ledger      = (*Store)(nil)
	_ payment.Records     = (*Store)(nil)
	_ auth.Repository     = (*Store)(nil)
)

// Store holds all storefront state. It is safe for concurrent use.
//
// Commits lock the customer's account first and the store second; nothing
// takes them in the other order.
type Store struct {
	mu        sync.Mutex
	customers map[string]*customer.Customer
	accounts  map[string]*sync.Mutex
	orders    []*order.Order
	byNumber  map[string]*order.Order
	payments  []payment.Record
	keys      map[string]auth.APIKey
	orderSeq  int
	paySeq    int
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		customers: make(map[string]*customer.Customer),
		accounts:  make(map[string]*sync.Mutex),
		byNumber:  make(map[string]*order.Order),
		keys:      make(map[string]auth.APIKey),
		orderSeq:  firstSequence,
		paySeq:    firstSequence,
	}
}

// UpsertCustomer inserts or replaces a customer.
func (s *Store) UpsertCustomer(_ context.Context, c customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers[c.ID] = &c
	if _, ok := s.accounts[c.ID]; !ok {
		s.accounts[c.ID] = &sync.Mutex{}
	}
	return nil
}

// UpsertAPIKey inserts or replaces an API key by hash.
func (s *Store) UpsertAPIKey(_ context.Context, k auth.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[k.KeyHash] = k
	return nil
}

// Get returns a copy of the customer.
func (s *Store) Get(_ context.Context, id string) (*customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", id, customer.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

// List returns all customers ordered by last and first name.
func (s *Store) List(_ context.Context) ([]customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]customer.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := strings.ToLower(out[i].LastName), strings.ToLower(out[j].LastName); a != b {
			return a < b
		}
		if a, b := strings.ToLower(out[i].FirstName), strings.ToLower(out[j].FirstName); a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Commit applies a payment entry under the customer's account lock.
func (s *Store) Commit(ctx context.Context, customerID string, plan payment.PlanFunc, e payment.Entry) (*payment.Receipt, error) {
	lock, err := s.account(customerID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	acct, err := s.Get(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if err := plan(acct, &e); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.customers[customerID]
	c.Balance = c.Balance.Add(e.BalanceDelta)

	e.Record.ID = fmt.Sprintf("PAY%d", s.paySeq)
	s.paySeq++
	e.Record.CustomerID = customerID

	var placed *order.Order
	if e.Order != nil {
		o := cloneOrder(e.Order)
		o.Number = fmt.Sprintf("ORD%d", s.orderSeq)
		s.orderSeq++
		o.CustomerID = customerID
		o.PaymentID = e.Record.ID
		e.Record.OrderNumber = o.Number

		s.orders = append(s.orders, o)
		s.byNumber[o.Number] = o
		placed = cloneOrder(o)
	}
	s.payments = append(s.payments, e.Record)

	return &payment.Receipt{
		Payment: e.Record,
		Order:   placed,
		Balance: c.Balance,
	}, nil
}

func (s *Store) account(customerID string) (*sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.accounts[customerID]
	if !ok {
		return nil, fmt.Errorf("customer %s: %w", customerID, customer.ErrNotFound)
	}
	return lock, nil
}

// ListPayments returns the customer's payments, oldest first. An empty
// customerID lists every payment.
func (s *Store) ListPayments(_ context.Context, customerID string) ([]payment.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []payment.Record
	for _, p := range s.payments {
		if customerID == "" || p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindByHash returns the API key with the given hash.
func (s *Store) FindByHash(_ context.Context, hash string) (*auth.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[hash]
	if !ok {
		return nil, auth.ErrKeyNotFound
	}
	return &k, nil
}

func cloneOrder(o *order.Order) *order.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	for i := range cp.Items {
		cp.Items[i].Contents = slices.Clone(cp.Items[i].Contents)
	}
	return &cp
}
