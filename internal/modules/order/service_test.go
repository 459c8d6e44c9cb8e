package order_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/versostore/verso-backend/internal/config"
	"github.com/versostore/verso-backend/internal/modules/account"
	"github.com/versostore/verso-backend/internal/modules/audit"
	"github.com/versostore/verso-backend/internal/modules/cart"
	"github.com/versostore/verso-backend/internal/modules/catalog"
	"github.com/versostore/verso-backend/internal/modules/order"
)

// ── fakes ────────────────────────────────────────────────────────────────────

// fakeRepo keeps orders and variant stock in memory. CreateOrder mirrors the
// postgres contract: check-and-decrement per item under one lock, all or
// nothing.
type fakeRepo struct {
	mu          sync.Mutex
	orders      map[string]*order.Order
	stock       map[uuid.UUID]int
	failRestore map[uuid.UUID]bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		orders:      make(map[string]*order.Order),
		stock:       make(map[uuid.UUID]int),
		failRestore: make(map[uuid.UUID]bool),
	}
}

func (r *fakeRepo) CreateOrder(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range o.Items {
		if r.stock[item.VariantID] < item.Quantity {
			return &order.InsufficientStockError{VariantID: item.VariantID, Requested: item.Quantity}
		}
	}
	for _, item := range o.Items {
		r.stock[item.VariantID] -= item.Quantity
	}
	r.orders[o.ID.String()] = o
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order not found")
	}
	return o, nil
}

func (r *fakeRepo) ListByIdentity(_ context.Context, identityID string) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*order.Order
	for _, o := range r.orders {
		if o.IdentityID != nil && o.IdentityID.String() == identityID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeRepo) List(_ context.Context, status string) ([]*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*order.Order
	for _, o := range r.orders {
		if status == "" || string(o.Status) == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id string, status order.Status, change *order.StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order not found")
	}
	o.Status = status
	return nil
}

func (r *fakeRepo) RestoreStock(_ context.Context, variantID uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failRestore[variantID] {
		return fmt.Errorf("variant %s no longer exists", variantID)
	}
	r.stock[variantID] += qty
	return nil
}

func (r *fakeRepo) stockOf(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stock[id]
}

type fakeCatalog struct {
	variants map[uuid.UUID]*catalog.Variant
	products map[uuid.UUID]*catalog.Product
}

func (c *fakeCatalog) GetVariant(_ context.Context, id string) (*catalog.Variant, error) {
	v, ok := c.variants[uuid.MustParse(id)]
	if !ok {
		return nil, fmt.Errorf("variant not found")
	}
	return v, nil
}

func (c *fakeCatalog) GetProductByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := c.products[uuid.MustParse(id)]
	if !ok {
		return nil, fmt.Errorf("product not found")
	}
	return p, nil
}

type fakeAccounts struct {
	identities map[string]*account.Identity
}

func (r *fakeAccounts) Create(_ context.Context, i *account.Identity) error {
	r.identities[i.ID.String()] = i
	return nil
}

func (r *fakeAccounts) GetByID(_ context.Context, id string) (*account.Identity, error) {
	i, ok := r.identities[id]
	if !ok {
		return nil, fmt.Errorf("identity not found")
	}
	return i, nil
}

func (r *fakeAccounts) GetByEmail(_ context.Context, email string) (*account.Identity, error) {
	for _, i := range r.identities {
		if i.Email == email {
			return i, nil
		}
	}
	return nil, fmt.Errorf("identity not found")
}

func (r *fakeAccounts) ListStaff(context.Context) ([]*account.Identity, error) { return nil, nil }
func (r *fakeAccounts) Update(context.Context, *account.Identity) error       { return nil }
func (r *fakeAccounts) UpdateRole(context.Context, string, account.Role) error {
	return nil
}
func (r *fakeAccounts) ReplaceRevoked(context.Context, string, []account.Permission) error {
	return nil
}
func (r *fakeAccounts) Delete(context.Context, string) error { return nil }

// ── fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	svc      order.Service
	repo     *fakeRepo
	carts    *cart.MemoryStore
	catalog  *fakeCatalog
	accounts *fakeAccounts

	product  *catalog.Product
	variantA uuid.UUID
	variantB uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	product := &catalog.Product{
		ID:        uuid.New(),
		Name:      "Linen Shirt",
		SKU:       "LS-01",
		BasePrice: decimal.NewFromInt(20),
		IsActive:  true,
	}
	variantA := &catalog.Variant{ID: uuid.New(), ProductID: product.ID, Size: "M", Color: "white", Stock: 10}
	priceB := decimal.NewFromInt(25)
	variantB := &catalog.Variant{ID: uuid.New(), ProductID: product.ID, Size: "L", Color: "black", Price: &priceB, Stock: 10}

	repo := newFakeRepo()
	repo.stock[variantA.ID] = variantA.Stock
	repo.stock[variantB.ID] = variantB.Stock

	f := &fixture{
		repo:  repo,
		carts: cart.NewMemoryStore(),
		catalog: &fakeCatalog{
			variants: map[uuid.UUID]*catalog.Variant{variantA.ID: variantA, variantB.ID: variantB},
			products: map[uuid.UUID]*catalog.Product{product.ID: product},
		},
		accounts: &fakeAccounts{identities: make(map[string]*account.Identity)},
		product:  product,
		variantA: variantA.ID,
		variantB: variantB.ID,
	}

	pricing := config.PricingConfig{
		TaxRate:          decimal.RequireFromString("0.10"),
		ShippingFlat:     decimal.NewFromInt(5),
		FreeShippingOver: decimal.NewFromInt(50),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = order.NewService(repo, f.carts, f.catalog, f.accounts,
		account.NewAuthority(audit.Nop{}), audit.Nop{}, pricing, log)
	return f
}

func (f *fixture) addIdentity(role account.Role) *account.Identity {
	i := &account.Identity{
		ID:        uuid.New(),
		Email:     uuid.New().String() + "@example.com",
		FirstName: "Test",
		LastName:  string(role),
		Role:      role,
	}
	f.accounts.identities[i.ID.String()] = i
	return i
}

func (f *fixture) fillSessionCart(t *testing.T, token string, items map[uuid.UUID]int) {
	t.Helper()
	c := cart.NewCart(cart.SessionKey(token))
	for id, qty := range items {
		c.Items[id] = qty
	}
	require.NoError(t, f.carts.Save(context.Background(), c))
}

func guestRequest(token string) order.CheckoutRequest {
	return order.CheckoutRequest{
		SessionToken:  token,
		CustomerName:  "Ada Guest",
		CustomerEmail: "ada@example.com",
		Address: order.Address{
			Address: "1 Main St",
			City:    "Springfield",
			Country: "US",
		},
		PaymentMethod: "cod",
	}
}

// ── checkout ─────────────────────────────────────────────────────────────────

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Checkout(context.Background(), guestRequest("empty-session"))
	require.ErrorIs(t, err, order.ErrEmptyCart)
	assert.Empty(t, f.repo.orders)
}

func TestCheckoutGuest(t *testing.T) {
	f := newFixture(t)
	f.fillSessionCart(t, "s1", map[uuid.UUID]int{f.variantA: 2, f.variantB: 1})

	o, err := f.svc.Checkout(context.Background(), guestRequest("s1"))
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, o.Status)
	assert.Regexp(t, `^VSO\d{8}[0-9A-F]{4}$`, o.OrderNumber)
	assert.Nil(t, o.IdentityID)
	require.Len(t, o.Items, 2)

	// 2 × 20.00 + 1 × 25.00; subtotal clears the free-shipping threshold.
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(65)), "subtotal %s", o.Subtotal)
	assert.True(t, o.Tax.Equal(decimal.RequireFromString("6.50")), "tax %s", o.Tax)
	assert.True(t, o.Shipping.IsZero(), "shipping %s", o.Shipping)
	assert.True(t, o.Total.Equal(decimal.RequireFromString("71.50")), "total %s", o.Total)

	// Stock is reserved and the cart is consumed.
	assert.Equal(t, 8, f.repo.stockOf(f.variantA))
	assert.Equal(t, 9, f.repo.stockOf(f.variantB))
	c, err := f.carts.Get(context.Background(), cart.SessionKey("s1"))
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestCheckoutFlatShippingBelowThreshold(t *testing.T) {
	f := newFixture(t)
	f.fillSessionCart(t, "s2", map[uuid.UUID]int{f.variantA: 1})

	o, err := f.svc.Checkout(context.Background(), guestRequest("s2"))
	require.NoError(t, err)

	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(20)))
	assert.True(t, o.Shipping.Equal(decimal.NewFromInt(5)))
	assert.True(t, o.Total.Equal(decimal.RequireFromString("27.00")), "total %s", o.Total)
}

func TestCheckoutSnapshotsIdentity(t *testing.T) {
	f := newFixture(t)
	customer := f.addIdentity(account.RoleCustomer)
	customer.Phone = "+15550100"
	customer.Address = "9 Elm St"
	customer.City = "Portland"
	customer.Country = "US"

	c := cart.NewCart(cart.IdentityKey(customer.ID.String()))
	c.Items[f.variantA] = 1
	require.NoError(t, f.carts.Save(context.Background(), c))

	req := order.CheckoutRequest{IdentityID: customer.ID.String(), PaymentMethod: "card"}
	o, err := f.svc.Checkout(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, o.IdentityID)
	assert.Equal(t, customer.ID, *o.IdentityID)
	assert.Equal(t, customer.FullName(), o.CustomerName)
	assert.Equal(t, customer.Email, o.CustomerEmail)
	assert.Equal(t, "+15550100", o.CustomerPhone)
	assert.Equal(t, "9 Elm St", o.ShippingAddress)
	assert.Equal(t, "Portland", o.ShippingCity)

	// Later profile edits must not leak into the snapshot.
	customer.Email = "changed@example.com"
	got, err := f.repo.GetByID(context.Background(), o.ID.String())
	require.NoError(t, err)
	assert.NotEqual(t, customer.Email, got.CustomerEmail)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.fillSessionCart(t, "s3", map[uuid.UUID]int{f.variantA: 11})

	_, err := f.svc.Checkout(context.Background(), guestRequest("s3"))
	require.ErrorIs(t, err, order.ErrInsufficientStock)

	var stockErr *order.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, f.variantA, stockErr.VariantID)
	assert.Equal(t, 11, stockErr.Requested)

	// Nothing committed, nothing consumed.
	assert.Empty(t, f.repo.orders)
	assert.Equal(t, 10, f.repo.stockOf(f.variantA))
	c, err := f.carts.Get(context.Background(), cart.SessionKey("s3"))
	require.NoError(t, err)
	assert.False(t, c.IsEmpty())
}

func TestCheckoutLastUnitSingleWinner(t *testing.T) {
	f := newFixture(t)
	f.repo.stock[f.variantA] = 1
	f.catalog.variants[f.variantA].Stock = 1

	f.fillSessionCart(t, "racer-1", map[uuid.UUID]int{f.variantA: 1})
	f.fillSessionCart(t, "racer-2", map[uuid.UUID]int{f.variantA: 1})

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, token := range []string{"racer-1", "racer-2"} {
		wg.Add(1)
		go func(token string) {
			defer wg.Done()
			_, err := f.svc.Checkout(context.Background(), guestRequest(token))
			errs <- err
		}(token)
	}
	wg.Wait()
	close(errs)

	var ok, insufficient int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, order.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one checkout wins the last unit")
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 0, f.repo.stockOf(f.variantA))
}

func TestCheckoutRequiresCartReference(t *testing.T) {
	f := newFixture(t)

	req := guestRequest("")
	_, err := f.svc.Checkout(context.Background(), req)
	require.Error(t, err)
}

// ── transitions ──────────────────────────────────────────────────────────────

func (f *fixture) placeOrder(t *testing.T, qty int) *order.Order {
	t.Helper()
	token := uuid.New().String()
	f.fillSessionCart(t, token, map[uuid.UUID]int{f.variantA: qty})
	o, err := f.svc.Checkout(context.Background(), guestRequest(token))
	require.NoError(t, err)
	return o
}

func (f *fixture) forceStatus(t *testing.T, o *order.Order, s order.Status) {
	t.Helper()
	f.repo.mu.Lock()
	defer f.repo.mu.Unlock()
	f.repo.orders[o.ID.String()].Status = s
}

func TestTransitionMatrix(t *testing.T) {
	legal := map[order.Status][]order.Status{
		order.StatusPending:   {order.StatusConfirmed, order.StatusCancelled},
		order.StatusConfirmed: {order.StatusShipped, order.StatusCancelled, order.StatusRefunded},
		order.StatusShipped:   {order.StatusDelivered},
		order.StatusDelivered: {order.StatusRefunded},
		order.StatusCancelled: {},
		order.StatusRefunded:  {},
	}
	all := []order.Status{
		order.StatusPending, order.StatusConfirmed, order.StatusShipped,
		order.StatusDelivered, order.StatusCancelled, order.StatusRefunded,
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, s := range legal[from] {
				if s == to {
					want = true
				}
			}

			t.Run(fmt.Sprintf("%s_to_%s", from, to), func(t *testing.T) {
				f := newFixture(t)
				manager := f.addIdentity(account.RoleManager)
				o := f.placeOrder(t, 1)
				f.forceStatus(t, o, from)

				_, err := f.svc.Transition(context.Background(), manager.ID.String(), o.ID.String(), string(to), "")
				got, getErr := f.repo.GetByID(context.Background(), o.ID.String())
				require.NoError(t, getErr)

				if want {
					require.NoError(t, err)
					assert.Equal(t, to, got.Status)
				} else {
					require.ErrorIs(t, err, order.ErrInvalidTransition)
					assert.Equal(t, from, got.Status, "a rejected transition leaves the order untouched")
				}
			})
		}
	}
}

func TestTransitionRecordsHistory(t *testing.T) {
	f := newFixture(t)
	manager := f.addIdentity(account.RoleManager)
	o := f.placeOrder(t, 1)

	res, err := f.svc.Transition(context.Background(), manager.ID.String(), o.ID.String(), string(order.StatusConfirmed), "stock verified")
	require.NoError(t, err)

	require.Len(t, res.Order.History, 1)
	change := res.Order.History[0]
	assert.Equal(t, o.ID, change.OrderID)
	assert.Equal(t, order.StatusPending, change.FromStatus)
	assert.Equal(t, order.StatusConfirmed, change.ToStatus)
	require.NotNil(t, change.ActorID)
	assert.Equal(t, manager.ID, *change.ActorID)
	assert.Equal(t, "stock verified", change.Note)
	assert.False(t, change.At.IsZero())

	// A second step appends, never rewrites.
	res, err = f.svc.Transition(context.Background(), manager.ID.String(), o.ID.String(), string(order.StatusShipped), "")
	require.NoError(t, err)
	require.Len(t, res.Order.History, 2)
	assert.Equal(t, order.StatusConfirmed, res.Order.History[1].FromStatus)
	assert.Equal(t, order.StatusShipped, res.Order.History[1].ToStatus)
}

func TestTransitionLowercaseStatus(t *testing.T) {
	f := newFixture(t)
	manager := f.addIdentity(account.RoleManager)
	o := f.placeOrder(t, 1)

	res, err := f.svc.Transition(context.Background(), manager.ID.String(), o.ID.String(), "confirmed", "")
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, res.Order.Status)
}

func TestTransitionUnknownStatus(t *testing.T) {
	f := newFixture(t)
	manager := f.addIdentity(account.RoleManager)
	o := f.placeOrder(t, 1)

	_, err := f.svc.Transition(context.Background(), manager.ID.String(), o.ID.String(), "TELEPORTED", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown status")
}

func TestTransitionDeniedForCustomer(t *testing.T) {
	f := newFixture(t)
	customer := f.addIdentity(account.RoleCustomer)
	o := f.placeOrder(t, 1)

	_, err := f.svc.Transition(context.Background(), customer.ID.String(), o.ID.String(), string(order.StatusConfirmed), "")
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	got, err := f.repo.GetByID(context.Background(), o.ID.String())
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
}

func TestRefundRequiresRefundCapability(t *testing.T) {
	f := newFixture(t)
	employee := f.addIdentity(account.RoleEmployee)
	manager := f.addIdentity(account.RoleManager)

	o := f.placeOrder(t, 1)
	f.forceStatus(t, o, order.StatusConfirmed)

	_, err := f.svc.Transition(context.Background(), employee.ID.String(), o.ID.String(), string(order.StatusRefunded), "")
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	res, err := f.svc.Transition(context.Background(), manager.ID.String(), o.ID.String(), string(order.StatusRefunded), "damaged on arrival")
	require.NoError(t, err)
	assert.Equal(t, order.StatusRefunded, res.Order.Status)
}

func TestCancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	manager := f.addIdentity(account.RoleManager)

	o := f.placeOrder(t, 2)
	require.Equal(t, 8, f.repo.stockOf(f.variantA))
	f.forceStatus(t, o, order.StatusConfirmed)

	res, err := f.svc.Transition(context.Background(), manager.ID.String(), o.ID.String(), string(order.StatusCancelled), "customer request")
	require.NoError(t, err)
	assert.Empty(t, res.StockRestorationFailed)
	assert.Equal(t, 10, f.repo.stockOf(f.variantA))
}

func TestRefundDoesNotRestoreStock(t *testing.T) {
	f := newFixture(t)
	manager := f.addIdentity(account.RoleManager)

	o := f.placeOrder(t, 2)
	f.forceStatus(t, o, order.StatusDelivered)

	_, err := f.svc.Transition(context.Background(), manager.ID.String(), o.ID.String(), string(order.StatusRefunded), "")
	require.NoError(t, err)
	assert.Equal(t, 8, f.repo.stockOf(f.variantA), "delivered goods are not back in stock")
}

func TestCancelSurvivesFailedRestoration(t *testing.T) {
	f := newFixture(t)
	manager := f.addIdentity(account.RoleManager)

	o := f.placeOrder(t, 1)
	f.repo.failRestore[f.variantA] = true

	res, err := f.svc.Transition(context.Background(), manager.ID.String(), o.ID.String(), string(order.StatusCancelled), "")
	require.NoError(t, err, "the committed transition stands even when restoration fails")
	assert.Equal(t, order.StatusCancelled, res.Order.Status)
	assert.Equal(t, []uuid.UUID{f.variantA}, res.StockRestorationFailed)

	got, err := f.repo.GetByID(context.Background(), o.ID.String())
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, got.Status)
}

// ── access ───────────────────────────────────────────────────────────────────

func TestGetOrderAccess(t *testing.T) {
	f := newFixture(t)
	owner := f.addIdentity(account.RoleCustomer)
	stranger := f.addIdentity(account.RoleCustomer)
	employee := f.addIdentity(account.RoleEmployee)

	c := cart.NewCart(cart.IdentityKey(owner.ID.String()))
	c.Items[f.variantA] = 1
	require.NoError(t, f.carts.Save(context.Background(), c))
	o, err := f.svc.Checkout(context.Background(), order.CheckoutRequest{
		IdentityID:    owner.ID.String(),
		Address:       order.Address{Address: "1 Main St", City: "Springfield", Country: "US"},
		PaymentMethod: "cod",
	})
	require.NoError(t, err)

	got, err := f.svc.GetOrder(context.Background(), owner.ID.String(), o.ID.String())
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = f.svc.GetOrder(context.Background(), stranger.ID.String(), o.ID.String())
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	_, err = f.svc.GetOrder(context.Background(), employee.ID.String(), o.ID.String())
	require.NoError(t, err)
}

func TestListRequiresViewOrders(t *testing.T) {
	f := newFixture(t)
	customer := f.addIdentity(account.RoleCustomer)
	employee := f.addIdentity(account.RoleEmployee)
	f.placeOrder(t, 1)

	_, err := f.svc.List(context.Background(), customer.ID.String(), "")
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	orders, err := f.svc.List(context.Background(), employee.ID.String(), "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
