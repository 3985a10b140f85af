package cart

import "sync"

// Store keeps one cart per customer for the lifetime of the process.
type Store struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{carts: make(map[string]*Cart)}
}

// For returns the cart owned by customerID, creating it on first use.
func (s *Store) For(customerID string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[customerID]
	if !ok {
		c = New()
		s.carts[customerID] = c
	}
	return c
}

// OnCartCleared empties the customer's cart. It lets the store act as the
// cart owner notified by checkout.
func (s *Store) OnCartCleared(customerID string) {
	s.For(customerID).Clear()
}
