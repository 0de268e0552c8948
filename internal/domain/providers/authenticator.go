package providers

import (
	"context"
)

// Account identifies an authenticated user at the identity provider.
type Account struct {
	UserID string
	Email  string
}

// Authenticator wraps the external identity provider.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*Account, error)
	Signup(ctx context.Context, email, password string) (*Account, error)
}
