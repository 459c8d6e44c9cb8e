package account

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL identity repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

const identityColumns = `id, email, password_hash, first_name, last_name, phone, role,
	address, city, state, country, postal_code, latitude, longitude, created_at, updated_at`

func (r *postgresRepository) Create(ctx context.Context, identity *Identity) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities
		  (id, email, password_hash, first_name, last_name, phone, role,
		   address, city, state, country, postal_code, latitude, longitude)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		identity.ID, identity.Email, identity.PasswordHash,
		identity.FirstName, identity.LastName, identity.Phone, identity.Role,
		identity.Address, identity.City, identity.State, identity.Country,
		identity.PostalCode, identity.Latitude, identity.Longitude)
	if err != nil {
		return fmt.Errorf("insert identity: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id string) (*Identity, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	identity, err := r.scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id=$1`, uid))
	if err != nil {
		return nil, err
	}
	identity.Revoked, err = r.loadRevoked(ctx, identity.ID)
	return identity, err
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*Identity, error) {
	identity, err := r.scanIdentity(r.db.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email=$1`, email))
	if err != nil {
		return nil, err
	}
	identity.Revoked, err = r.loadRevoked(ctx, identity.ID)
	return identity, err
}

func (r *postgresRepository) ListStaff(ctx context.Context) ([]*Identity, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+identityColumns+` FROM identities
		WHERE role IN ($1,$2,$3) ORDER BY created_at DESC`,
		RoleEmployee, RoleManager, RoleAdmin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []*Identity
	for rows.Next() {
		identity, err := r.scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, identity)
	}
	return staff, rows.Err()
}

func (r *postgresRepository) Update(ctx context.Context, identity *Identity) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE identities SET
		  first_name=$1, last_name=$2, phone=$3,
		  address=$4, city=$5, state=$6, country=$7, postal_code=$8,
		  latitude=$9, longitude=$10, updated_at=$11
		WHERE id=$12`,
		identity.FirstName, identity.LastName, identity.Phone,
		identity.Address, identity.City, identity.State, identity.Country,
		identity.PostalCode, identity.Latitude, identity.Longitude,
		time.Now(), identity.ID)
	return err
}

func (r *postgresRepository) UpdateRole(ctx context.Context, id string, role Role) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities SET role=$1, updated_at=$2 WHERE id=$3`,
		role, time.Now(), id)
	return err
}

// ReplaceRevoked swaps the identity's revoked-permission set atomically.
func (r *postgresRepository) ReplaceRevoked(ctx context.Context, id string, revoked []Permission) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM identity_revoked_permissions WHERE identity_id=$1`, uid); err != nil {
		return fmt.Errorf("clear revoked permissions: %w", err)
	}
	for _, p := range revoked {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO identity_revoked_permissions (identity_id, permission)
			VALUES ($1,$2)`, uid, p); err != nil {
			return fmt.Errorf("insert revoked permission: %w", err)
		}
	}
	return tx.Commit()
}

func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `DELETE FROM identities WHERE id=$1`, uid)
	return err
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *postgresRepository) scanIdentity(row rowScanner) (*Identity, error) {
	identity := &Identity{}
	err := row.Scan(
		&identity.ID, &identity.Email, &identity.PasswordHash,
		&identity.FirstName, &identity.LastName, &identity.Phone, &identity.Role,
		&identity.Address, &identity.City, &identity.State, &identity.Country,
		&identity.PostalCode, &identity.Latitude, &identity.Longitude,
		&identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (r *postgresRepository) loadRevoked(ctx context.Context, id uuid.UUID) (map[Permission]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT permission FROM identity_revoked_permissions WHERE identity_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revoked map[Permission]bool
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		if revoked == nil {
			revoked = make(map[Permission]bool)
		}
		revoked[p] = true
	}
	return revoked, rows.Err()
}
