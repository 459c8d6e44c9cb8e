package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/versostore/verso-backend/internal/modules/account"
	"github.com/versostore/verso-backend/internal/modules/auth"
	"github.com/versostore/verso-backend/internal/token"
)

type fakeAccounts struct {
	byEmail map[string]*account.Identity
}

func (r *fakeAccounts) GetByEmail(_ context.Context, email string) (*account.Identity, error) {
	i, ok := r.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("identity not found")
	}
	return i, nil
}

func (r *fakeAccounts) Create(context.Context, *account.Identity) error { return nil }
func (r *fakeAccounts) GetByID(context.Context, string) (*account.Identity, error) {
	return nil, fmt.Errorf("identity not found")
}
func (r *fakeAccounts) ListStaff(context.Context) ([]*account.Identity, error) { return nil, nil }
func (r *fakeAccounts) Update(context.Context, *account.Identity) error        { return nil }
func (r *fakeAccounts) UpdateRole(context.Context, string, account.Role) error { return nil }
func (r *fakeAccounts) ReplaceRevoked(context.Context, string, []account.Permission) error {
	return nil
}
func (r *fakeAccounts) Delete(context.Context, string) error { return nil }

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("open-sesame"), bcrypt.MinCost)
	require.NoError(t, err)

	manager := &account.Identity{
		ID:           uuid.New(),
		Email:        "manager@example.com",
		PasswordHash: string(hash),
		Role:         account.RoleManager,
	}
	accounts := &fakeAccounts{byEmail: map[string]*account.Identity{manager.Email: manager}}
	svc := auth.NewService(accounts, "test-secret", time.Hour)

	tok, err := svc.Login(context.Background(), "manager@example.com", "open-sesame")
	require.NoError(t, err)

	claims, err := token.Validate("test-secret", tok)
	require.NoError(t, err)
	assert.Equal(t, manager.ID.String(), claims.IdentityID)
	assert.Equal(t, string(account.RoleManager), claims.Role)

	// Wrong password and unknown email yield the same error.
	_, err = svc.Login(context.Background(), "manager@example.com", "wrong")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(context.Background(), "nobody@example.com", "open-sesame")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
