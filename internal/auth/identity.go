package auth

import (
	"context"

	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
)

// Identity is the authenticated caller attached to a request by the Gate.
// It is stored by value; the permission set is shared read-only.
type Identity struct {
	SubjectID   int64
	RoleID      int64
	DisplayName string
	Permissions rbac.PermissionSet
}

// Can reports whether the identity holds code or the wildcard.
func (i Identity) Can(code string) bool {
	return i.Permissions.Allows(code)
}

type identityContextKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity. ok is false for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
