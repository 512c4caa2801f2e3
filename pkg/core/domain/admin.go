package domain

import (
	"context"
	"time"
)

const RoleAdmin = "admin"

// Admin is the single site administrator account.
type Admin struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the verified caller attached to a request context.
type Identity struct {
	Subject string `json:"username"`
	Role    string `json:"role"`
}

type identityKey struct{}

// WithIdentity returns a context carrying a verified identity.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity attached by the auth middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// RequireAdmin returns ErrAuthRequired unless ctx carries an admin identity.
func RequireAdmin(ctx context.Context) error {
	id, ok := IdentityFrom(ctx)
	if !ok || id.Role != RoleAdmin {
		return ErrAuthRequired
	}
	return nil
}
