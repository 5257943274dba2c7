package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// RoleLookup fetches role details for the current-user endpoint.
type RoleLookup interface {
	GetRole(ctx context.Context, id int64) (rbac.Role, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	roles     RoleLookup
	validator *validator.Validate
}

// NewHandler constructs a Handler instance. roles may be nil.
func NewHandler(logger *slog.Logger, service *Service, roles RoleLookup) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		roles:     roles,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: malformed request body", httpx.ErrValidation))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.RespondError(w, fmt.Errorf("%w: %s failed on %s", httpx.ErrValidation, fieldErrs[0].Field(), fieldErrs[0].Tag()))
			return
		}
		httpx.RespondError(w, fmt.Errorf("%w: invalid request", httpx.ErrValidation))
		return
	}

	result, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.logger.Info("login rejected", slog.String("username", req.Username))
			httpx.Unauthorized(w, "invalid username or password")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.InternalError(w)
		return
	}

	httpx.JSON(w, http.StatusOK, loginResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresIn:   int64(result.ExpiresIn.Seconds()),
	})
}

type currentUserResponse struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	RoleID      int64      `json:"role_id"`
	Role        *rbac.Role `json:"role,omitempty"`
	Permissions []string   `json:"permissions"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		h.logger.Warn("current user requested without identity", slog.String("path", r.URL.Path))
		httpx.Unauthorized(w, msgAuthRequired)
		return
	}
	resp := currentUserResponse{
		ID:          id.SubjectID,
		Username:    id.DisplayName,
		RoleID:      id.RoleID,
		Permissions: id.Permissions.Codes(),
	}
	if h.roles != nil {
		role, err := h.roles.GetRole(r.Context(), id.RoleID)
		switch {
		case err == nil:
			resp.Role = &role
		case errors.Is(err, rbac.ErrNotFound):
		default:
			h.logger.Warn("lookup role for current user", slog.Int64("role_id", id.RoleID), slog.Any("error", err))
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}
