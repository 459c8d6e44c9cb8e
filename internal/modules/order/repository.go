package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines order data storage. CreateOrder owns the one place in
// the system where concurrency really matters: the stock check-and-decrement
// for every line item must happen atomically with the order insert, so two
// checkouts racing for the last unit cannot both succeed.
type Repository interface {
	// CreateOrder persists the order and its items and decrements variant
	// stock, all in one transaction. If any variant cannot cover its
	// quantity the whole transaction rolls back and an
	// *InsufficientStockError is returned.
	CreateOrder(ctx context.Context, o *Order) error

	GetByID(ctx context.Context, id string) (*Order, error)
	ListByIdentity(ctx context.Context, identityID string) ([]*Order, error)
	List(ctx context.Context, status string) ([]*Order, error)

	// UpdateStatus commits a status change together with its history record.
	UpdateStatus(ctx context.Context, id string, status Status, change *StatusChange) error

	// RestoreStock adds qty back to the variant's stock. Returns an error
	// when the variant no longer exists.
	RestoreStock(ctx context.Context, variantID uuid.UUID, qty int) error
}
