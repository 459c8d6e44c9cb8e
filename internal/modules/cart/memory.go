package cart

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process cart store. Useful for development and
// testing; not durable across restarts.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

// NewMemoryStore creates an in-memory cart store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]*Cart)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.carts[key]
	if !ok {
		return NewCart(key), nil
	}
	return copyCart(c), nil
}

func (s *MemoryStore) Save(_ context.Context, c *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.UpdatedAt = time.Now().UTC()
	s.carts[c.Key] = copyCart(c)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, key)
	return nil
}

func copyCart(c *Cart) *Cart {
	items := make(map[uuid.UUID]int, len(c.Items))
	for id, qty := range c.Items {
		items[id] = qty
	}
	return &Cart{Key: c.Key, Items: items, UpdatedAt: c.UpdatedAt}
}
