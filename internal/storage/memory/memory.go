// Package memory provides in-process cart and order storage for tests and
// single-instance deployments.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/go-faster/errors"

	"github.com/Sabariaz123456/Hackathon3/internal/domain/cart"
	"github.com/Sabariaz123456/Hackathon3/internal/domain/order"
)

var (
	_ cart.Backend     = (*CartStore)(nil)
	_ cart.Pinger      = (*CartStore)(nil)
	_ order.Repository = (*OrderRepository)(nil)
)

// CartStore keeps cart documents in a map.
type CartStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewCartStore returns an empty CartStore.
func NewCartStore() *CartStore {
	return &CartStore{docs: make(map[string][]byte)}
}

// Load returns a copy of the document stored under key.
func (s *CartStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[key]
	if !ok {
		return nil, cart.ErrNotFound
	}
	return slices.Clone(doc), nil
}

// Save stores a copy of document under key.
func (s *CartStore) Save(_ context.Context, key string, document []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[key] = slices.Clone(document)
	return nil
}

// Ping always succeeds.
func (s *CartStore) Ping(context.Context) error { return nil }

// OrderRepository keeps orders in a map keyed by id.
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]order.Order
}

// NewOrderRepository returns an empty OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]order.Order)}
}

// Create stores o. Ids must be unique.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[o.ID]; ok {
		return errors.Errorf("order %q already exists", o.ID)
	}
	stored := *o
	stored.Items = slices.Clone(o.Items)
	r.orders[o.ID] = stored
	return nil
}

// Get returns the order with the given id.
func (r *OrderRepository) Get(id string) (order.Order, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	return o, ok
}
