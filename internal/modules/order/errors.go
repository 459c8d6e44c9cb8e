package order

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrEmptyCart is returned when checkout is attempted on an empty cart.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrInvalidTransition is returned for a status change outside the
	// lifecycle table. The order is left unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInsufficientStock is the sentinel wrapped by InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStoreUnavailable wraps infrastructure failures from the backing
	// store. The core does not retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// InsufficientStockError names the variant whose stock could not cover the
// requested quantity.
type InsufficientStockError struct {
	VariantID uuid.UUID
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s (requested %d)", e.VariantID, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
