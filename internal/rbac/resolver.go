package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrResolution marks a storage failure while resolving a role's permissions.
var ErrResolution = errors.New("rbac: permission resolution failed")

// PermissionReader loads raw permission codes for a role.
type PermissionReader interface {
	PermissionsForRole(ctx context.Context, roleID int64) ([]string, error)
}

// PermissionResolver turns a role id into its current permission set.
type PermissionResolver interface {
	Resolve(ctx context.Context, roleID int64) (PermissionSet, error)
}

// ResolutionError carries the role and the underlying storage error.
type ResolutionError struct {
	RoleID int64
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("rbac: resolve permissions for role %d: %v", e.RoleID, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Is matches ErrResolution.
func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// Resolver reads grants from storage on every call. It keeps no shared mutable state.
type Resolver struct {
	reader PermissionReader
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(reader PermissionReader, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{reader: reader, logger: logger}
}

// Resolve returns the permissions currently granted to roleID. A role without
// grants yields an empty set. If ctx is done the context error is returned
// as-is rather than a ResolutionError.
func (r *Resolver) Resolve(ctx context.Context, roleID int64) (PermissionSet, error) {
	codes, err := r.reader.PermissionsForRole(ctx, roleID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return PermissionSet{}, ctxErr
		}
		return PermissionSet{}, &ResolutionError{RoleID: roleID, Err: err}
	}
	set := NewPermissionSet(codes...)
	if set.Len() == 0 {
		r.logger.Warn("role has no permissions", slog.Int64("role_id", roleID))
	}
	return set, nil
}

var _ PermissionResolver = (*Resolver)(nil)
