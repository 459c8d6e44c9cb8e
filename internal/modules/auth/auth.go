package auth

import "context"

// Service defines the interface for authentication-related business logic.
type Service interface {
	// Login verifies credentials and returns a signed token.
	Login(ctx context.Context, email, password string) (string, error)
}
