package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	memoryReader
	roles       []Role
	permissions []Permission
	listErr     error
}

func (m *memoryRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	return m.permissions, m.listErr
}

func (m *memoryRepo) ListRoles(ctx context.Context) ([]Role, error) {
	return m.roles, m.listErr
}

func (m *memoryRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	for _, role := range m.roles {
		if role.ID == id {
			return role, nil
		}
	}
	return Role{}, ErrNotFound
}

type recordingAuthorizer struct {
	required []string
}

func (a *recordingAuthorizer) RequirePermission(code string) func(http.Handler) http.Handler {
	a.required = append(a.required, code)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Required", code)
			next.ServeHTTP(w, r)
		})
	}
}

func newPermissionsRouter(repo *memoryRepo) (http.Handler, *recordingAuthorizer) {
	authz := &recordingAuthorizer{}
	h := NewPermissionsHandler(nil, NewService(repo), authz)
	r := chi.NewRouter()
	r.Route("/api/v1/permissions", h.MountPermissionRoutes)
	r.Route("/api/v1/roles", h.MountRoleRoutes)
	return r, authz
}

func seededRepo() *memoryRepo {
	return &memoryRepo{
		memoryReader: memoryReader{grants: map[int64][]string{
			1: {"*"},
			2: {"user:read", "role:read"},
		}},
		roles: []Role{{ID: 1, Name: "super_admin"}, {ID: 2, Name: "viewer"}},
		permissions: []Permission{
			{ID: 1, Code: "role:read"},
			{ID: 2, Code: "user:read"},
		},
	}
}

func TestPermissionsHandlerRequiresPermissions(t *testing.T) {
	router, authz := newPermissionsRouter(seededRepo())
	assert.ElementsMatch(t, []string{"permission:read", "role:read"}, authz.required)

	cases := map[string]string{
		"/api/v1/permissions":         "permission:read",
		"/api/v1/roles":               "role:read",
		"/api/v1/roles/2/permissions": "role:read",
	}
	for path, code := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, code, rr.Header().Get("X-Required"), path)
	}
}

func TestListPermissions(t *testing.T) {
	router, _ := newPermissionsRouter(seededRepo())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/permissions", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Permissions []Permission `json:"permissions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Permissions, 2)
	assert.Equal(t, "role:read", body.Permissions[0].Code)
}

func TestListRolesEmpty(t *testing.T) {
	router, _ := newPermissionsRouter(&memoryRepo{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/roles", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"roles":[]}`, rr.Body.String())
}

func TestRolePermissions(t *testing.T) {
	router, _ := newPermissionsRouter(seededRepo())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/roles/2/permissions", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body rolePermissionsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "viewer", body.Role.Name)
	assert.Equal(t, []string{"role:read", "user:read"}, body.Permissions)
}

func TestRolePermissionsErrors(t *testing.T) {
	repo := seededRepo()
	router, _ := newPermissionsRouter(repo)

	cases := map[string]int{
		"/api/v1/roles/abc/permissions": http.StatusBadRequest,
		"/api/v1/roles/0/permissions":   http.StatusBadRequest,
		"/api/v1/roles/77/permissions":  http.StatusNotFound,
	}
	for path, status := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, rr.Code, path)
	}

	repo.err = errors.New("db down")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/roles/2/permissions", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "db down")
}

func TestListFailureHidesDetail(t *testing.T) {
	repo := seededRepo()
	repo.listErr = errors.New("relation does not exist")
	router, _ := newPermissionsRouter(repo)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/permissions", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "relation")
}
