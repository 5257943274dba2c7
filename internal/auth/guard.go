package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
)

// Require admits when the request identity holds code or the wildcard.
// It returns ErrAuthenticationRequired when no identity is attached and an
// error matching ErrInsufficientPermission otherwise.
func Require(ctx context.Context, code string) error {
	return RequireAllOf(ctx, code)
}

// RequireAnyOf admits when the identity holds at least one of codes.
// With no codes it only requires an identity.
func RequireAnyOf(ctx context.Context, codes ...string) error {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return ErrAuthenticationRequired
	}
	if len(codes) == 0 {
		return nil
	}
	for _, code := range codes {
		if id.Can(code) {
			return nil
		}
	}
	return &PermissionError{SubjectID: id.SubjectID, RoleID: id.RoleID, Required: codes}
}

// RequireAllOf admits when the identity holds every one of codes.
func RequireAllOf(ctx context.Context, codes ...string) error {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return ErrAuthenticationRequired
	}
	var missing []string
	for _, code := range codes {
		if !id.Can(code) {
			missing = append(missing, code)
		}
	}
	if len(missing) > 0 {
		return &PermissionError{SubjectID: id.SubjectID, RoleID: id.RoleID, Required: missing}
	}
	return nil
}

// Guard wires permission checks as HTTP middleware. It must run after the Gate.
type Guard struct {
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// RequirePermission admits requests whose identity holds code.
// It panics when code is blank or padded with whitespace.
func (g Guard) RequirePermission(code string) func(http.Handler) http.Handler {
	return g.RequireAll(code)
}

// RequireAny ensures the current identity has at least one of the permissions.
func (g Guard) RequireAny(perms ...string) func(http.Handler) http.Handler {
	codes := mustPermissions("RequireAny", perms)
	return g.middleware(func(ctx context.Context) error {
		return RequireAnyOf(ctx, codes...)
	})
}

// RequireAll ensures the current identity has all of the permissions.
func (g Guard) RequireAll(perms ...string) func(http.Handler) http.Handler {
	codes := mustPermissions("RequireAll", perms)
	return g.middleware(func(ctx context.Context) error {
		return RequireAllOf(ctx, codes...)
	})
}

func (g Guard) middleware(check func(context.Context) error) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			err := check(r.Context())
			if err == nil {
				g.Metrics.ObserveGuard(observability.GuardAdmit)
				next.ServeHTTP(w, r)
				return
			}
			g.reject(w, r, err)
		})
	}
}

func (g Guard) reject(w http.ResponseWriter, r *http.Request, err error) {
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var permErr *PermissionError
	switch {
	case errors.As(err, &permErr):
		g.Metrics.ObserveGuard(observability.GuardDeny)
		logger.Warn("permission denied",
			slog.Int64("subject_id", permErr.SubjectID),
			slog.Int64("role_id", permErr.RoleID),
			slog.String("required", strings.Join(permErr.Required, ",")),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path))
		httpx.Forbidden(w, msgForbidden)
	default:
		g.Metrics.ObserveGuard(observability.GuardUnauthenticated)
		logger.Warn("permission guard reached without identity; check that the gate runs first",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("reason", err))
		httpx.Unauthorized(w, msgAuthRequired)
	}
}

// mustPermissions dedupes perms for a route guard. Codes are compared
// verbatim by Require, so a blank or padded code can only be a wiring mistake.
func mustPermissions(op string, perms []string) []string {
	if len(perms) == 0 {
		panic(fmt.Sprintf("auth: %s needs at least one permission code", op))
	}
	seen := make(map[string]struct{}, len(perms))
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		if p == "" || strings.TrimSpace(p) != p {
			panic(fmt.Sprintf("auth: %s: invalid permission code %q", op, p))
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		codes = append(codes, p)
	}
	return codes
}
