package auth

import "context"

type identityKey struct{}

// Identity is the authenticated caller attached to a request context. Every
// token is scoped to exactly one tenant, so TenantID is always set for an
// authenticated request.
type Identity struct {
	TenantID string
	Role     Role
	Subject  string
}

// WithIdentity attaches the caller identity to the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity. The zero Identity means
// the request was not authenticated.
func IdentityFromContext(ctx context.Context) Identity {
	if ctx == nil {
		return Identity{}
	}
	id, _ := ctx.Value(identityKey{}).(Identity)
	return id
}

// TenantIDFromContext returns the authenticated tenant id, or empty.
func TenantIDFromContext(ctx context.Context) string {
	return IdentityFromContext(ctx).TenantID
}

// RoleFromContext returns the authenticated role, or empty.
func RoleFromContext(ctx context.Context) Role {
	return IdentityFromContext(ctx).Role
}
