package account

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service defines identity business logic: customer registration, profile
// management, and the Authority-gated staff operations.
type Service interface {
	RegisterCustomer(ctx context.Context, req RegisterRequest) (*Identity, error)

	// Get returns the target identity. Identities may always read
	// themselves; reading anyone else requires the view capability.
	Get(ctx context.Context, actorID, targetID string) (*Identity, error)

	// UpdateProfile edits contact and address data. Identities may always
	// edit themselves; editing anyone else goes through the Authority.
	UpdateProfile(ctx context.Context, actorID, targetID string, req ProfileUpdate) (*Identity, error)

	// CreateStaff provisions a staff account with the given role.
	CreateStaff(ctx context.Context, actorID string, req CreateStaffRequest) (*Identity, error)
	ListStaff(ctx context.Context, actorID string) ([]*Identity, error)

	// ChangeRole promotes or demotes the target identity.
	ChangeRole(ctx context.Context, actorID, targetID, role string) (*Identity, error)

	// RevokePermission withdraws a granular flag from the target;
	// GrantPermission restores it. Flags never widen beyond the role baseline.
	RevokePermission(ctx context.Context, actorID, targetID, permission string) error
	GrantPermission(ctx context.Context, actorID, targetID, permission string) error

	DeleteIdentity(ctx context.Context, actorID, targetID string) error
}

// RegisterRequest holds data for customer self-registration.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// ProfileUpdate holds editable contact and address fields.
type ProfileUpdate struct {
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Phone      string   `json:"phone"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Country    string   `json:"country"`
	PostalCode string   `json:"postal_code"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

// CreateStaffRequest holds data for provisioning a staff account.
type CreateStaffRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type service struct {
	repo      Repository
	authority *Authority
}

// NewService creates a new account service.
func NewService(repo Repository, authority *Authority) Service {
	return &service{repo: repo, authority: authority}
}

func (s *service) RegisterCustomer(ctx context.Context, req RegisterRequest) (*Identity, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         RoleCustomer,
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return identity, nil
}

func (s *service) Get(ctx context.Context, actorID, targetID string) (*Identity, error) {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("identity not found: %w", err)
	}

	if actorID != targetID {
		actor, err := s.repo.GetByID(ctx, actorID)
		if err != nil {
			return nil, fmt.Errorf("actor not found: %w", err)
		}
		if err := s.authority.Check(ctx, actor, ActionViewIdentities, nil); err != nil {
			return nil, err
		}
	}
	return target, nil
}

func (s *service) UpdateProfile(ctx context.Context, actorID, targetID string, req ProfileUpdate) (*Identity, error) {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("identity not found: %w", err)
	}

	if actorID != targetID {
		actor, err := s.repo.GetByID(ctx, actorID)
		if err != nil {
			return nil, fmt.Errorf("actor not found: %w", err)
		}
		if err := s.authority.Check(ctx, actor, ActionEditIdentity, target); err != nil {
			return nil, err
		}
	}

	target.FirstName = req.FirstName
	target.LastName = req.LastName
	target.Phone = req.Phone
	target.Address = req.Address
	target.City = req.City
	target.State = req.State
	target.Country = req.Country
	target.PostalCode = req.PostalCode
	target.Latitude = req.Latitude
	target.Longitude = req.Longitude

	if err := s.repo.Update(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

func (s *service) CreateStaff(ctx context.Context, actorID string, req CreateStaffRequest) (*Identity, error) {
	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("actor not found: %w", err)
	}
	// Assigning a role is the same privilege as changing one.
	if err := s.authority.Check(ctx, actor, ActionPromoteIdentity, nil); err != nil {
		return nil, err
	}

	role, err := ParseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if !role.IsStaff() {
		return nil, fmt.Errorf("role %s is not a staff role", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	identity := &Identity{
		ID:           uuid.New(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
	}
	if err := s.repo.Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("create staff: %w", err)
	}
	return identity, nil
}

func (s *service) ListStaff(ctx context.Context, actorID string) ([]*Identity, error) {
	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("actor not found: %w", err)
	}
	if err := s.authority.Check(ctx, actor, ActionViewIdentities, nil); err != nil {
		return nil, err
	}
	return s.repo.ListStaff(ctx)
}

func (s *service) ChangeRole(ctx context.Context, actorID, targetID, role string) (*Identity, error) {
	newRole, err := ParseRole(role)
	if err != nil {
		return nil, err
	}

	actor, target, err := s.loadPair(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if err := s.authority.Check(ctx, actor, ActionPromoteIdentity, target); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRole(ctx, targetID, newRole); err != nil {
		return nil, err
	}
	target.Role = newRole
	return target, nil
}

func (s *service) RevokePermission(ctx context.Context, actorID, targetID, permission string) error {
	perm, err := ParsePermission(permission)
	if err != nil {
		return err
	}

	actor, target, err := s.loadPair(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if err := s.authority.Check(ctx, actor, ActionRevokePermission, target); err != nil {
		return err
	}

	if target.Revoked == nil {
		target.Revoked = make(map[Permission]bool)
	}
	target.Revoked[perm] = true
	return s.repo.ReplaceRevoked(ctx, targetID, permissionList(target.Revoked))
}

func (s *service) GrantPermission(ctx context.Context, actorID, targetID, permission string) error {
	perm, err := ParsePermission(permission)
	if err != nil {
		return err
	}

	actor, target, err := s.loadPair(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if err := s.authority.Check(ctx, actor, ActionGrantPermission, target); err != nil {
		return err
	}

	// Granting only erases a revocation; the role baseline is the ceiling.
	delete(target.Revoked, perm)
	return s.repo.ReplaceRevoked(ctx, targetID, permissionList(target.Revoked))
}

func (s *service) DeleteIdentity(ctx context.Context, actorID, targetID string) error {
	actor, target, err := s.loadPair(ctx, actorID, targetID)
	if err != nil {
		return err
	}
	if err := s.authority.Check(ctx, actor, ActionDeleteIdentity, target); err != nil {
		return err
	}
	return s.repo.Delete(ctx, targetID)
}

func (s *service) loadPair(ctx context.Context, actorID, targetID string) (*Identity, *Identity, error) {
	actor, err := s.repo.GetByID(ctx, actorID)
	if err != nil {
		return nil, nil, fmt.Errorf("actor not found: %w", err)
	}
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, nil, fmt.Errorf("identity not found: %w", err)
	}
	return actor, target, nil
}

func permissionList(set map[Permission]bool) []Permission {
	perms := make([]Permission, 0, len(set))
	for p, revoked := range set {
		if revoked {
			perms = append(perms, p)
		}
	}
	return perms
}
