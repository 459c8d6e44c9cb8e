package account

import "context"

// Repository defines identity data storage.
type Repository interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	ListStaff(ctx context.Context) ([]*Identity, error)
	Update(ctx context.Context, identity *Identity) error
	UpdateRole(ctx context.Context, id string, role Role) error
	ReplaceRevoked(ctx context.Context, id string, revoked []Permission) error
	Delete(ctx context.Context, id string) error
}
