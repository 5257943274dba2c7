package rbac

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// Authorizer produces per-route permission middleware.
type Authorizer interface {
	RequirePermission(code string) func(http.Handler) http.Handler
}

// PermissionsHandler serves read-only role and permission listings.
type PermissionsHandler struct {
	logger  *slog.Logger
	service *Service
	authz   Authorizer
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, authz Authorizer) *PermissionsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionsHandler{logger: logger, service: service, authz: authz}
}

// MountPermissionRoutes registers permission routes.
func (h *PermissionsHandler) MountPermissionRoutes(r chi.Router) {
	r.With(h.authz.RequirePermission(shared.PermPermissionRead)).Get("/", h.listPermissions)
}

// MountRoleRoutes registers role routes.
func (h *PermissionsHandler) MountRoleRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authz.RequirePermission(shared.PermRoleRead))
		r.Get("/", h.listRoles)
		r.Get("/{id}/permissions", h.rolePermissions)
	})
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": perms})
}

func (h *PermissionsHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": roles})
}

type rolePermissionsResponse struct {
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions"`
}

func (h *PermissionsHandler) rolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, fmt.Errorf("%w: role id must be a positive integer", httpx.ErrValidation))
		return
	}
	role, codes, err := h.service.RolePermissions(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.RespondError(w, fmt.Errorf("%w: role %d", httpx.ErrNotFound, id))
			return
		}
		h.logger.Error("role permissions", slog.Int64("role_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rolePermissionsResponse{Role: role, Permissions: codes})
}
