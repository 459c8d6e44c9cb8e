package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/versostore/verso-backend/internal/modules/catalog"
)

// VariantGetter is the slice of the catalog the cart needs: existence and
// stock of a variant when items are added.
type VariantGetter interface {
	GetVariant(ctx context.Context, id string) (*catalog.Variant, error)
}

// Service defines cart business logic. Carts are addressed by key; the
// handler decides whether that key is a guest session or an identity.
type Service interface {
	Get(ctx context.Context, key string) (*Cart, error)
	AddItem(ctx context.Context, key, variantID string, qty int) (*Cart, error)
	UpdateItem(ctx context.Context, key, variantID string, qty int) (*Cart, error)
	RemoveItem(ctx context.Context, key, variantID string) (*Cart, error)
	Clear(ctx context.Context, key string) error

	// Merge folds the guest session cart into the identity's cart, summing
	// quantities for shared variants, and clears the session cart.
	Merge(ctx context.Context, sessionToken, identityID string) (*Cart, error)
}

type service struct {
	store    Store
	variants VariantGetter
}

// NewService creates a new cart service.
func NewService(store Store, variants VariantGetter) Service {
	return &service{store: store, variants: variants}
}

func (s *service) Get(ctx context.Context, key string) (*Cart, error) {
	return s.store.Get(ctx, key)
}

func (s *service) AddItem(ctx context.Context, key, variantID string, qty int) (*Cart, error) {
	if qty <= 0 {
		return nil, fmt.Errorf("quantity must be > 0")
	}
	variant, err := s.variants.GetVariant(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("variant not found: %w", err)
	}

	c, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.Items[variant.ID] += qty

	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) UpdateItem(ctx context.Context, key, variantID string, qty int) (*Cart, error) {
	vid, err := uuid.Parse(variantID)
	if err != nil {
		return nil, fmt.Errorf("invalid variant id: %w", err)
	}

	c, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if qty > 0 {
		c.Items[vid] = qty
	} else {
		delete(c.Items, vid)
	}

	if err := s.store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) RemoveItem(ctx context.Context, key, variantID string) (*Cart, error) {
	return s.UpdateItem(ctx, key, variantID, 0)
}

func (s *service) Clear(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}

func (s *service) Merge(ctx context.Context, sessionToken, identityID string) (*Cart, error) {
	sessionCart, err := s.store.Get(ctx, SessionKey(sessionToken))
	if err != nil {
		return nil, err
	}
	identityCart, err := s.store.Get(ctx, IdentityKey(identityID))
	if err != nil {
		return nil, err
	}

	for variantID, qty := range sessionCart.Items {
		identityCart.Items[variantID] += qty
	}

	if err := s.store.Save(ctx, identityCart); err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, sessionCart.Key); err != nil {
		return nil, err
	}
	return identityCart, nil
}
