package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/versostore/verso-backend/internal/modules/account"
	"github.com/versostore/verso-backend/internal/token"
)

// ErrInvalidCredentials is returned for a bad email/password pair. The same
// error covers both cases so callers cannot probe which emails exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

type service struct {
	accounts account.Repository
	secret   string
	ttl      time.Duration
}

// NewService creates a new auth service.
func NewService(accounts account.Repository, secret string, ttl time.Duration) Service {
	return &service{accounts: accounts, secret: secret, ttl: ttl}
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	identity, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return token.Generate(s.secret, s.ttl, identity.ID.String(), string(identity.Role))
}
