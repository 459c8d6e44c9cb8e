package account

import (
	"time"

	"github.com/google/uuid"
)

// Identity is a user of the system, customer or staff. The Revoked set holds
// permission flags explicitly withdrawn from the identity; an empty set means
// the role baseline applies untouched.
type Identity struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Phone        string    `json:"phone,omitempty"`

	Role    Role                `json:"role"`
	Revoked map[Permission]bool `json:"revoked_permissions,omitempty"`

	// Default shipping address, copied into orders at checkout.
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName returns the display name, falling back to the email address.
func (i *Identity) FullName() string {
	name := i.FirstName
	if i.LastName != "" {
		if name != "" {
			name += " "
		}
		name += i.LastName
	}
	if name == "" {
		return i.Email
	}
	return name
}

// IsStaff reports whether the identity holds a staff role.
func (i *Identity) IsStaff() bool { return i.Role.IsStaff() }

// HasRevoked reports whether the given flag was explicitly withdrawn.
func (i *Identity) HasRevoked(p Permission) bool {
	return i.Revoked[p]
}
