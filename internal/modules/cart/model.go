package cart

import (
	"time"

	"github.com/google/uuid"
)

// Cart maps product variant ids to quantities. A cart belongs either to a
// guest browser session or to an authenticated identity; the Key encodes
// which.
type Cart struct {
	Key       string            `json:"key"`
	Items     map[uuid.UUID]int `json:"items"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// NewCart creates an empty cart for the given key.
func NewCart(key string) *Cart {
	return &Cart{Key: key, Items: make(map[uuid.UUID]int)}
}

// TotalItems is the sum of all quantities in the cart.
func (c *Cart) TotalItems() int {
	total := 0
	for _, qty := range c.Items {
		total += qty
	}
	return total
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool { return c.TotalItems() == 0 }

// SessionKey builds the cart key for a guest session token.
func SessionKey(token string) string { return "cart:session:" + token }

// IdentityKey builds the cart key for an authenticated identity.
func IdentityKey(identityID string) string { return "cart:identity:" + identityID }
