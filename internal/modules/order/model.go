package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
	StatusRefunded  Status = "REFUNDED"
)

// validTransitions defines the allowed status state machine. Cancelled and
// Refunded are terminal; Delivered only moves on to Refunded.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusShipped, StatusCancelled, StatusRefunded},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {StatusRefunded},
	StatusCancelled: {},
	StatusRefunded:  {},
}

// CanTransition reports whether from → to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseStatus converts a request string into a Status.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(s)) {
	case StatusPending, StatusConfirmed, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded:
		return Status(strings.ToUpper(s)), nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Order is a customer's order. Customer contact data and the shipping
// address are snapshots taken at checkout; later edits to the identity
// never change past orders. Orders are never deleted, only moved to a
// terminal status.
type Order struct {
	ID          uuid.UUID  `json:"id"`
	OrderNumber string     `json:"order_number"`
	IdentityID  *uuid.UUID `json:"identity_id,omitempty"` // nil for guest orders

	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone,omitempty"`

	ShippingAddress    string `json:"shipping_address"`
	ShippingCity       string `json:"shipping_city"`
	ShippingState      string `json:"shipping_state,omitempty"`
	ShippingCountry    string `json:"shipping_country"`
	ShippingPostalCode string `json:"shipping_postal_code,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	Status        Status `json:"status"`
	PaymentMethod string `json:"payment_method"`

	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`

	Items   []*Item         `json:"items,omitempty"`
	History []*StatusChange `json:"history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Item is a single line item. Unit price and product display data are
// captured at order creation and never recomputed from the catalog.
type Item struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	VariantID uuid.UUID `json:"variant_id"`

	ProductName string `json:"product_name"`
	ProductSKU  string `json:"product_sku"`
	Size        string `json:"size,omitempty"`
	Color       string `json:"color,omitempty"`

	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// StatusChange is an immutable history record of one lifecycle step.
type StatusChange struct {
	ID         uuid.UUID  `json:"id"`
	OrderID    uuid.UUID  `json:"order_id"`
	FromStatus Status     `json:"from_status"`
	ToStatus   Status     `json:"to_status"`
	ActorID    *uuid.UUID `json:"actor_id,omitempty"`
	Note       string     `json:"note,omitempty"`
	At         time.Time  `json:"at"`
}

// Address is the shipping destination supplied at checkout.
type Address struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// CheckoutRequest is the payload for converting a cart into an order.
// Either SessionToken (guest) or the authenticated actor identifies the
// cart; guests must supply their contact details inline.
type CheckoutRequest struct {
	SessionToken string `json:"session_token,omitempty"`
	IdentityID   string `json:"-"`

	CustomerName  string `json:"customer_name,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`

	Address       Address  `json:"address"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	PaymentMethod string   `json:"payment_method"`
	Note          string   `json:"note,omitempty"`
}

// TransitionResult reports a committed transition. StockRestorationFailed
// lists variants whose stock could not be restored after a cancellation;
// the transition itself stands and the inconsistency is left for manual
// reconciliation.
type TransitionResult struct {
	Order                  *Order      `json:"order"`
	StockRestorationFailed []uuid.UUID `json:"stock_restoration_failed,omitempty"`
}

// generateOrderNumber creates a human-readable order number: VSOYYYYMMDDXXXX.
func generateOrderNumber() string {
	date := time.Now().UTC().Format("20060102")
	suffix := strings.ToUpper(uuid.New().String()[:4])
	return fmt.Sprintf("VSO%s%s", date, suffix)
}
