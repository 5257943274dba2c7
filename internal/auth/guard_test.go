package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/auth"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
)

func withGrants(codes ...string) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		SubjectID:   11,
		RoleID:      3,
		DisplayName: "tester",
		Permissions: rbac.NewPermissionSet(codes...),
	})
}

func TestRequire(t *testing.T) {
	cases := []struct {
		name   string
		ctx    context.Context
		code   string
		expect error
	}{
		{name: "exact grant", ctx: withGrants("user:read"), code: "user:read"},
		{name: "wildcard", ctx: withGrants("*"), code: "anything:at-all"},
		{name: "wildcard admits empty code", ctx: withGrants("*"), code: ""},
		{name: "missing", ctx: withGrants("user:read"), code: "user:delete", expect: auth.ErrInsufficientPermission},
		{name: "case sensitive", ctx: withGrants("user:read"), code: "User:Read", expect: auth.ErrInsufficientPermission},
		{name: "no prefix matching", ctx: withGrants("user"), code: "user:read", expect: auth.ErrInsufficientPermission},
		{name: "empty set", ctx: withGrants(), code: "user:read", expect: auth.ErrInsufficientPermission},
		{name: "anonymous", ctx: context.Background(), code: "user:read", expect: auth.ErrAuthenticationRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := auth.Require(tc.ctx, tc.code)
			if tc.expect == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.expect)
		})
	}
}

func TestRequireReportsDeniedIdentity(t *testing.T) {
	err := auth.Require(withGrants("user:read"), "role:write")

	var permErr *auth.PermissionError
	require.True(t, errors.As(err, &permErr))
	assert.Equal(t, int64(11), permErr.SubjectID)
	assert.Equal(t, int64(3), permErr.RoleID)
	assert.Equal(t, []string{"role:write"}, permErr.Required)
}

func TestRequireAnyOfAndAllOf(t *testing.T) {
	ctx := withGrants("user:read", "role:read")

	require.NoError(t, auth.RequireAnyOf(ctx, "user:delete", "role:read"))
	require.ErrorIs(t, auth.RequireAnyOf(ctx, "user:delete", "role:write"), auth.ErrInsufficientPermission)
	require.NoError(t, auth.RequireAnyOf(ctx))
	require.ErrorIs(t, auth.RequireAnyOf(context.Background()), auth.ErrAuthenticationRequired)

	require.NoError(t, auth.RequireAllOf(ctx, "user:read", "role:read"))
	err := auth.RequireAllOf(ctx, "user:read", "user:create", "role:write")
	var permErr *auth.PermissionError
	require.ErrorAs(t, err, &permErr)
	assert.Equal(t, []string{"user:create", "role:write"}, permErr.Required)
}

func TestGuardMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guard := auth.Guard{}

	cases := []struct {
		name       string
		middleware func(http.Handler) http.Handler
		ctx        context.Context
		status     int
	}{
		{name: "single admitted", middleware: guard.RequirePermission("user:read"), ctx: withGrants("user:read"), status: http.StatusNoContent},
		{name: "single denied", middleware: guard.RequirePermission("user:create"), ctx: withGrants("user:read"), status: http.StatusForbidden},
		{name: "any admitted", middleware: guard.RequireAny("user:create", "user:read"), ctx: withGrants("user:read"), status: http.StatusNoContent},
		{name: "any denied", middleware: guard.RequireAny("user:create", "user:delete"), ctx: withGrants("user:read"), status: http.StatusForbidden},
		{name: "all admitted", middleware: guard.RequireAll("user:read", "user:read", "role:read"), ctx: withGrants("user:read", "role:read"), status: http.StatusNoContent},
		{name: "all denied", middleware: guard.RequireAll("user:read", "role:write"), ctx: withGrants("user:read"), status: http.StatusForbidden},
		{name: "wildcard", middleware: guard.RequireAll("user:read", "role:write"), ctx: withGrants("*"), status: http.StatusNoContent},
		{name: "no identity", middleware: guard.RequirePermission("user:read"), ctx: context.Background(), status: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil).WithContext(tc.ctx)
			rr := httptest.NewRecorder()
			tc.middleware(ok).ServeHTTP(rr, req)
			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusForbidden {
				assert.Contains(t, rr.Body.String(), "insufficient permissions")
				assert.NotContains(t, rr.Body.String(), "user:")
			}
		})
	}
}

func TestGuardRejectsBlankCodes(t *testing.T) {
	guard := auth.Guard{}
	cases := []struct {
		name  string
		build func()
	}{
		{name: "empty", build: func() { guard.RequirePermission("") }},
		{name: "whitespace", build: func() { guard.RequirePermission("  ") }},
		{name: "padded", build: func() { guard.RequirePermission(" user:read") }},
		{name: "any without codes", build: func() { guard.RequireAny() }},
		{name: "any with blank", build: func() { guard.RequireAny("user:read", "") }},
		{name: "all without codes", build: func() { guard.RequireAll() }},
		{name: "all only blanks", build: func() { guard.RequireAll(" ", "") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Panics(t, tc.build)
		})
	}
}

func TestRequireDoesNotTrimCodes(t *testing.T) {
	ctx := withGrants("user:read")
	require.ErrorIs(t, auth.Require(ctx, ""), auth.ErrInsufficientPermission)
	require.ErrorIs(t, auth.Require(ctx, " user:read"), auth.ErrInsufficientPermission)
}

func TestIdentityFromContext(t *testing.T) {
	_, ok := auth.IdentityFromContext(context.Background())
	assert.False(t, ok)

	id := auth.Identity{SubjectID: 1, RoleID: 2, DisplayName: "a", Permissions: rbac.NewPermissionSet("x")}
	got, ok := auth.IdentityFromContext(auth.WithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Equal(t, int64(1), got.SubjectID)
	assert.True(t, got.Can("x"))
	assert.False(t, got.Can("y"))
}
