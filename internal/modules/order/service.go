package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/versostore/verso-backend/internal/config"
	"github.com/versostore/verso-backend/internal/metrics"
	"github.com/versostore/verso-backend/internal/modules/account"
	"github.com/versostore/verso-backend/internal/modules/audit"
	"github.com/versostore/verso-backend/internal/modules/cart"
	"github.com/versostore/verso-backend/internal/modules/catalog"
)

// CatalogReader is the slice of the catalog the order module needs: variant
// stock and the product data snapshotted into line items.
type CatalogReader interface {
	GetVariant(ctx context.Context, id string) (*catalog.Variant, error)
	GetProductByID(ctx context.Context, id string) (*catalog.Product, error)
}

// Service defines the order lifecycle business logic.
type Service interface {
	// Checkout converts a cart into a Pending order. The cart is cleared
	// only when the order was created successfully.
	Checkout(ctx context.Context, req CheckoutRequest) (*Order, error)

	// GetOrder returns the order if the actor owns it or may view orders.
	GetOrder(ctx context.Context, actorID, id string) (*Order, error)

	ListMine(ctx context.Context, identityID string) ([]*Order, error)
	List(ctx context.Context, actorID, status string) ([]*Order, error)

	// Transition moves the order to a new lifecycle status on behalf of a
	// staff actor. A cancellation of a not-yet-shipped order restores the
	// reserved variant stock; restoration failures do not undo the
	// transition and are reported in the result.
	Transition(ctx context.Context, actorID, orderID, newStatus, note string) (*TransitionResult, error)
}

type service struct {
	repo      Repository
	carts     cart.Store
	catalog   CatalogReader
	accounts  account.Repository
	authority *account.Authority
	recorder  audit.Recorder
	pricing   config.PricingConfig
	log       *slog.Logger
}

// NewService creates a new order service.
func NewService(repo Repository, carts cart.Store, cat CatalogReader,
	accounts account.Repository, authority *account.Authority,
	recorder audit.Recorder, pricing config.PricingConfig, log *slog.Logger) Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &service{
		repo:      repo,
		carts:     carts,
		catalog:   cat,
		accounts:  accounts,
		authority: authority,
		recorder:  recorder,
		pricing:   pricing,
		log:       log,
	}
}

func (s *service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	cartKey, err := checkoutCartKey(req)
	if err != nil {
		return nil, err
	}

	c, err := s.carts.Get(ctx, cartKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, err)
	}
	if c.IsEmpty() {
		metrics.Checkouts.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	o := &Order{
		ID:            uuid.New(),
		OrderNumber:   generateOrderNumber(),
		Status:        StatusPending,
		PaymentMethod: req.PaymentMethod,

		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,

		ShippingAddress:    req.Address.Address,
		ShippingCity:       req.Address.City,
		ShippingState:      req.Address.State,
		ShippingCountry:    req.Address.Country,
		ShippingPostalCode: req.Address.PostalCode,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
	}

	if req.IdentityID != "" {
		identity, err := s.accounts.GetByID(ctx, req.IdentityID)
		if err != nil {
			return nil, fmt.Errorf("identity not found: %w", err)
		}
		id := identity.ID
		o.IdentityID = &id
		// Contact data is snapshotted from the account; later profile
		// edits must not change this order.
		o.CustomerName = identity.FullName()
		o.CustomerEmail = identity.Email
		o.CustomerPhone = identity.Phone
		if o.ShippingAddress == "" {
			o.ShippingAddress = identity.Address
			o.ShippingCity = identity.City
			o.ShippingState = identity.State
			o.ShippingCountry = identity.Country
			o.ShippingPostalCode = identity.PostalCode
			o.Latitude = identity.Latitude
			o.Longitude = identity.Longitude
		}
	}
	if o.CustomerName == "" || o.CustomerEmail == "" {
		return nil, fmt.Errorf("customer name and email are required")
	}

	items, err := s.buildItems(ctx, o.ID, c)
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			metrics.Checkouts.WithLabelValues("insufficient_stock").Inc()
		}
		return nil, err
	}
	o.Items = items
	s.applyPricing(o)

	if err := s.repo.CreateOrder(ctx, o); err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			metrics.Checkouts.WithLabelValues("insufficient_stock").Inc()
			return nil, err
		}
		metrics.Checkouts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, err)
	}

	// The cart is consumed only after the order committed. A failed clear
	// leaves a stale cart behind, which is worth a warning but not a
	// failed checkout.
	if err := s.carts.Delete(ctx, cartKey); err != nil {
		s.log.Warn("cart clear after checkout failed", "cart_key", cartKey, "order", o.OrderNumber, "error", err)
	}

	metrics.Checkouts.WithLabelValues("ok").Inc()
	return o, nil
}

func (s *service) GetOrder(ctx context.Context, actorID, id string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}

	if o.IdentityID != nil && o.IdentityID.String() == actorID {
		return o, nil
	}

	actor, err := s.accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, account.ErrPermissionDenied
	}
	if err := s.authority.Check(ctx, actor, account.ActionViewOrders, nil); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *service) ListMine(ctx context.Context, identityID string) ([]*Order, error) {
	return s.repo.ListByIdentity(ctx, identityID)
}

func (s *service) List(ctx context.Context, actorID, status string) ([]*Order, error) {
	actor, err := s.accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("actor not found: %w", err)
	}
	if err := s.authority.Check(ctx, actor, account.ActionViewOrders, nil); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, status)
}

func (s *service) Transition(ctx context.Context, actorID, orderID, newStatus, note string) (*TransitionResult, error) {
	target, err := ParseStatus(newStatus)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order not found: %w", err)
	}

	actor, err := s.accounts.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("actor not found: %w", err)
	}

	var owner *account.Identity
	if o.IdentityID != nil {
		// Owner may have been deleted; a nil owner means no hierarchy
		// consideration applies.
		owner, _ = s.accounts.GetByID(ctx, o.IdentityID.String())
	}

	action := account.ActionEditOrder
	if target == StatusRefunded {
		action = account.ActionRefundOrder
	}
	if err := s.authority.Check(ctx, actor, action, owner); err != nil {
		metrics.OrderTransitions.WithLabelValues(string(target), "denied").Inc()
		return nil, err
	}

	from := o.Status
	if !CanTransition(from, target) {
		metrics.OrderTransitions.WithLabelValues(string(target), "invalid").Inc()
		return nil, fmt.Errorf("cannot transition order from %s to %s: %w", from, target, ErrInvalidTransition)
	}

	actorUUID := actor.ID
	change := &StatusChange{
		ID:         uuid.New(),
		OrderID:    o.ID,
		FromStatus: from,
		ToStatus:   target,
		ActorID:    &actorUUID,
		Note:       note,
		At:         time.Now().UTC(),
	}
	if err := s.repo.UpdateStatus(ctx, orderID, target, change); err != nil {
		metrics.OrderTransitions.WithLabelValues(string(target), "error").Inc()
		return nil, fmt.Errorf("%w: %s", ErrStoreUnavailable, err)
	}
	o.Status = target
	o.History = append(o.History, change)

	s.recorder.Record(ctx, audit.Event{
		ActorID: &actorUUID,
		Action:  "order_transition",
		Allowed: true,
		Note:    fmt.Sprintf("%s %s -> %s", o.OrderNumber, from, target),
		At:      change.At,
	})

	result := &TransitionResult{Order: o}

	// Cancelling an order that still holds reserved stock puts the units
	// back. The transition is already committed: a failed restoration is
	// reported for manual reconciliation, never rolled back.
	if target == StatusCancelled && (from == StatusPending || from == StatusConfirmed) {
		for _, item := range o.Items {
			if err := s.repo.RestoreStock(ctx, item.VariantID, item.Quantity); err != nil {
				s.log.Error("stock restoration failed",
					"order", o.OrderNumber, "variant", item.VariantID, "quantity", item.Quantity, "error", err)
				metrics.StockRestorationFailures.Inc()
				result.StockRestorationFailed = append(result.StockRestorationFailed, item.VariantID)
			}
		}
	}

	metrics.OrderTransitions.WithLabelValues(string(target), "ok").Inc()
	return result, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func checkoutCartKey(req CheckoutRequest) (string, error) {
	if req.IdentityID != "" {
		return cart.IdentityKey(req.IdentityID), nil
	}
	if req.SessionToken != "" {
		return cart.SessionKey(req.SessionToken), nil
	}
	return "", fmt.Errorf("session token or authentication required")
}

// buildItems snapshots every cart line into an order item, capturing the
// unit price at this moment. The stock check here is advisory; the binding
// check-and-decrement happens inside the repository transaction.
func (s *service) buildItems(ctx context.Context, orderID uuid.UUID, c *cart.Cart) ([]*Item, error) {
	variantIDs := make([]uuid.UUID, 0, len(c.Items))
	for id := range c.Items {
		variantIDs = append(variantIDs, id)
	}
	// Stable ordering keeps line items deterministic and gives concurrent
	// checkouts a consistent lock order on variant rows.
	sort.Slice(variantIDs, func(i, j int) bool {
		return variantIDs[i].String() < variantIDs[j].String()
	})

	items := make([]*Item, 0, len(variantIDs))
	for _, variantID := range variantIDs {
		qty := c.Items[variantID]
		if qty <= 0 {
			continue
		}

		variant, err := s.catalog.GetVariant(ctx, variantID.String())
		if err != nil {
			return nil, fmt.Errorf("variant %s not found: %w", variantID, err)
		}
		if variant.Stock < qty {
			return nil, &InsufficientStockError{VariantID: variantID, Requested: qty}
		}
		product, err := s.catalog.GetProductByID(ctx, variant.ProductID.String())
		if err != nil {
			return nil, fmt.Errorf("product for variant %s not found: %w", variantID, err)
		}

		unitPrice := variant.EffectivePrice(product)
		items = append(items, &Item{
			ID:          uuid.New(),
			OrderID:     orderID,
			VariantID:   variantID,
			ProductName: product.Name,
			ProductSKU:  product.SKU,
			Size:        variant.Size,
			Color:       variant.Color,
			UnitPrice:   unitPrice,
			Quantity:    qty,
			LineTotal:   unitPrice.Mul(decimal.NewFromInt(int64(qty))),
		})
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	return items, nil
}

func (s *service) applyPricing(o *Order) {
	subtotal := decimal.Zero
	for _, item := range o.Items {
		subtotal = subtotal.Add(item.LineTotal)
	}
	o.Subtotal = subtotal.Round(2)
	o.Tax = subtotal.Mul(s.pricing.TaxRate).Round(2)
	if subtotal.GreaterThanOrEqual(s.pricing.FreeShippingOver) {
		o.Shipping = decimal.Zero
	} else {
		o.Shipping = s.pricing.ShippingFlat
	}
	o.Total = o.Subtotal.Add(o.Tax).Add(o.Shipping)
}
