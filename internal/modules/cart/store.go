package cart

import "context"

// Store persists carts by key. Get returns an empty cart (never nil) when
// the key is unknown.
type Store interface {
	Get(ctx context.Context, key string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, key string) error
}
