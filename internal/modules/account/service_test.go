package account_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/versostore/verso-backend/internal/modules/account"
	"github.com/versostore/verso-backend/internal/modules/audit"
)

type memoryRepo struct {
	identities map[string]*account.Identity
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{identities: make(map[string]*account.Identity)}
}

func (r *memoryRepo) Create(_ context.Context, i *account.Identity) error {
	for _, existing := range r.identities {
		if existing.Email == i.Email {
			return fmt.Errorf("email already registered")
		}
	}
	r.identities[i.ID.String()] = i
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*account.Identity, error) {
	i, ok := r.identities[id]
	if !ok {
		return nil, fmt.Errorf("identity not found")
	}
	return i, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*account.Identity, error) {
	for _, i := range r.identities {
		if i.Email == email {
			return i, nil
		}
	}
	return nil, fmt.Errorf("identity not found")
}

func (r *memoryRepo) ListStaff(context.Context) ([]*account.Identity, error) {
	var out []*account.Identity
	for _, i := range r.identities {
		if i.IsStaff() {
			out = append(out, i)
		}
	}
	return out, nil
}

func (r *memoryRepo) Update(_ context.Context, i *account.Identity) error {
	r.identities[i.ID.String()] = i
	return nil
}

func (r *memoryRepo) UpdateRole(_ context.Context, id string, role account.Role) error {
	i, ok := r.identities[id]
	if !ok {
		return fmt.Errorf("identity not found")
	}
	i.Role = role
	return nil
}

func (r *memoryRepo) ReplaceRevoked(_ context.Context, id string, revoked []account.Permission) error {
	i, ok := r.identities[id]
	if !ok {
		return fmt.Errorf("identity not found")
	}
	i.Revoked = make(map[account.Permission]bool, len(revoked))
	for _, p := range revoked {
		i.Revoked[p] = true
	}
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.identities[id]; !ok {
		return fmt.Errorf("identity not found")
	}
	delete(r.identities, id)
	return nil
}

func (r *memoryRepo) seed(role account.Role) *account.Identity {
	i := &account.Identity{
		ID:    uuid.New(),
		Email: uuid.New().String() + "@example.com",
		Role:  role,
	}
	r.identities[i.ID.String()] = i
	return i
}

func newAccountService() (account.Service, *memoryRepo) {
	repo := newMemoryRepo()
	return account.NewService(repo, account.NewAuthority(audit.Nop{})), repo
}

func TestRegisterCustomer(t *testing.T) {
	svc, repo := newAccountService()

	got, err := svc.RegisterCustomer(context.Background(), account.RegisterRequest{
		Email:     "mina@example.com",
		Password:  "hunter22",
		FirstName: "Mina",
		LastName:  "Osei",
	})
	require.NoError(t, err)
	assert.Equal(t, account.RoleCustomer, got.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.PasswordHash), []byte("hunter22")))

	_, err = svc.RegisterCustomer(context.Background(), account.RegisterRequest{
		Email: "mina@example.com", Password: "another",
	})
	require.Error(t, err, "duplicate email rejected")

	_, err = svc.RegisterCustomer(context.Background(), account.RegisterRequest{Email: "no-pass@example.com"})
	require.Error(t, err)

	stored, err := repo.GetByEmail(context.Background(), "mina@example.com")
	require.NoError(t, err)
	assert.Equal(t, got.ID, stored.ID)
}

func TestGetSelfAndStaff(t *testing.T) {
	svc, repo := newAccountService()
	admin := repo.seed(account.RoleAdmin)
	admin.Address = "1 Secret Lane"
	customer := repo.seed(account.RoleCustomer)
	otherCustomer := repo.seed(account.RoleCustomer)
	employee := repo.seed(account.RoleEmployee)

	// Reading oneself needs no capability.
	got, err := svc.Get(context.Background(), customer.ID.String(), customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, customer.ID, got.ID)

	// A customer cannot pull anyone else's record, staff or customer.
	_, err = svc.Get(context.Background(), customer.ID.String(), admin.ID.String())
	require.ErrorIs(t, err, account.ErrPermissionDenied)
	_, err = svc.Get(context.Background(), customer.ID.String(), otherCustomer.ID.String())
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	// Staff with the view capability can.
	got, err = svc.Get(context.Background(), employee.ID.String(), customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, customer.ID, got.ID)
}

func TestUpdateProfileSelfAndStaff(t *testing.T) {
	svc, repo := newAccountService()
	customer := repo.seed(account.RoleCustomer)
	otherCustomer := repo.seed(account.RoleCustomer)
	manager := repo.seed(account.RoleManager)

	update := account.ProfileUpdate{FirstName: "New", LastName: "Name", City: "Lagos"}

	// Self-edit needs no staff capability.
	got, err := svc.UpdateProfile(context.Background(), customer.ID.String(), customer.ID.String(), update)
	require.NoError(t, err)
	assert.Equal(t, "New", got.FirstName)
	assert.Equal(t, "Lagos", got.City)

	// A customer cannot edit someone else.
	_, err = svc.UpdateProfile(context.Background(), otherCustomer.ID.String(), customer.ID.String(), update)
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	// A manager can.
	_, err = svc.UpdateProfile(context.Background(), manager.ID.String(), customer.ID.String(), update)
	require.NoError(t, err)
}

func TestCreateStaff(t *testing.T) {
	svc, repo := newAccountService()
	admin := repo.seed(account.RoleAdmin)
	manager := repo.seed(account.RoleManager)

	req := account.CreateStaffRequest{
		Email:    "staff@example.com",
		Password: "s3cret",
		Role:     "EMPLOYEE",
	}

	got, err := svc.CreateStaff(context.Background(), admin.ID.String(), req)
	require.NoError(t, err)
	assert.Equal(t, account.RoleEmployee, got.Role)

	// Role assignment is an admin privilege.
	req.Email = "staff2@example.com"
	_, err = svc.CreateStaff(context.Background(), manager.ID.String(), req)
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	// Staff accounts cannot be customers.
	req.Role = "CUSTOMER"
	_, err = svc.CreateStaff(context.Background(), admin.ID.String(), req)
	require.Error(t, err)
}

func TestChangeRole(t *testing.T) {
	svc, repo := newAccountService()
	admin := repo.seed(account.RoleAdmin)
	manager := repo.seed(account.RoleManager)
	employee := repo.seed(account.RoleEmployee)

	got, err := svc.ChangeRole(context.Background(), admin.ID.String(), employee.ID.String(), "MANAGER")
	require.NoError(t, err)
	assert.Equal(t, account.RoleManager, got.Role)

	// Managers may not change roles at all.
	_, err = svc.ChangeRole(context.Background(), manager.ID.String(), employee.ID.String(), "EMPLOYEE")
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	// Not even an admin can demote themself.
	_, err = svc.ChangeRole(context.Background(), admin.ID.String(), admin.ID.String(), "EMPLOYEE")
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	_, err = svc.ChangeRole(context.Background(), admin.ID.String(), employee.ID.String(), "WIZARD")
	require.Error(t, err)
}

func TestRevokeAndGrantPermission(t *testing.T) {
	svc, repo := newAccountService()
	admin := repo.seed(account.RoleAdmin)
	manager := repo.seed(account.RoleManager)
	authority := account.NewAuthority(audit.Nop{})

	require.True(t, authority.Authorize(manager, account.ActionDeleteProduct, nil))

	err := svc.RevokePermission(context.Background(), admin.ID.String(), manager.ID.String(), "can_delete_product")
	require.NoError(t, err)
	assert.False(t, authority.Authorize(manager, account.ActionDeleteProduct, nil))

	// Granting restores the role baseline.
	err = svc.GrantPermission(context.Background(), admin.ID.String(), manager.ID.String(), "can_delete_product")
	require.NoError(t, err)
	assert.True(t, authority.Authorize(manager, account.ActionDeleteProduct, nil))

	// A grant can never push past the baseline: a manager still cannot
	// change roles even after being "granted" the staff-management flag.
	err = svc.GrantPermission(context.Background(), admin.ID.String(), manager.ID.String(), "can_manage_staff")
	require.NoError(t, err)
	assert.False(t, authority.Authorize(manager, account.ActionPromoteIdentity, nil))

	err = svc.RevokePermission(context.Background(), admin.ID.String(), manager.ID.String(), "can_fly")
	require.Error(t, err, "unknown permission")

	// Nobody revokes their own flags.
	err = svc.RevokePermission(context.Background(), admin.ID.String(), admin.ID.String(), "can_delete_product")
	require.ErrorIs(t, err, account.ErrPermissionDenied)
}

func TestDeleteIdentity(t *testing.T) {
	svc, repo := newAccountService()
	admin := repo.seed(account.RoleAdmin)
	manager := repo.seed(account.RoleManager)
	employee := repo.seed(account.RoleEmployee)

	// Upward deletion is blocked.
	err := svc.DeleteIdentity(context.Background(), employee.ID.String(), admin.ID.String())
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	// So is self-deletion.
	err = svc.DeleteIdentity(context.Background(), admin.ID.String(), admin.ID.String())
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	// Downward deletion works.
	err = svc.DeleteIdentity(context.Background(), manager.ID.String(), employee.ID.String())
	require.NoError(t, err)
	_, err = repo.GetByID(context.Background(), employee.ID.String())
	require.Error(t, err)
}

func TestListStaffRequiresCapability(t *testing.T) {
	svc, repo := newAccountService()
	customer := repo.seed(account.RoleCustomer)
	employee := repo.seed(account.RoleEmployee)
	repo.seed(account.RoleManager)

	_, err := svc.ListStaff(context.Background(), customer.ID.String())
	require.ErrorIs(t, err, account.ErrPermissionDenied)

	staff, err := svc.ListStaff(context.Background(), employee.ID.String())
	require.NoError(t, err)
	assert.Len(t, staff, 2)
}
