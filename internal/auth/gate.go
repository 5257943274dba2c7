package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/observability"
	"github.com/odyssey-erp/odyssey-admin/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/token"
)

const bearerPrefix = "Bearer "

// CredentialVerifier validates a raw bearer credential.
type CredentialVerifier interface {
	Verify(raw string) (token.Claims, error)
}

// GateConfig aggregates the Gate's collaborators. PublicPaths defaults to
// DefaultPublicPaths when nil.
type GateConfig struct {
	Verifier    CredentialVerifier
	Resolver    rbac.PermissionResolver
	PublicPaths []PublicPath
	Logger      *slog.Logger
	Metrics     *observability.Metrics
}

// Gate authenticates every request and attaches its Identity.
type Gate struct {
	verifier CredentialVerifier
	resolver rbac.PermissionResolver
	public   publicPaths
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewGate constructs a Gate. The allow-list is copied and fixed from here on.
func NewGate(cfg GateConfig) (*Gate, error) {
	if cfg.Verifier == nil || cfg.Resolver == nil {
		return nil, errors.New("auth: gate requires a verifier and a resolver")
	}
	paths := cfg.PublicPaths
	if paths == nil {
		paths = DefaultPublicPaths()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		verifier: cfg.Verifier,
		resolver: cfg.Resolver,
		public:   append(publicPaths(nil), paths...),
		logger:   logger,
		metrics:  cfg.Metrics,
	}, nil
}

// IsPublic reports whether path is on the allow-list.
func (g *Gate) IsPublic(path string) bool {
	return g.public.matches(path)
}

// Middleware returns the request pipeline stage.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		public := g.public.matches(r.URL.Path)

		claims, err := g.authenticate(r)
		if err != nil {
			if public {
				g.metrics.ObserveAuth(observability.AuthAnonymous)
				if !errors.Is(err, ErrCredentialAbsent) {
					g.logger.Debug("ignoring rejected credential on public path",
						slog.String("path", r.URL.Path), slog.Any("reason", err))
				}
				next.ServeHTTP(w, r)
				return
			}
			g.metrics.ObserveAuth(observability.AuthRejected)
			g.logger.Warn("authentication failed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Any("reason", err))
			httpx.Unauthorized(w, msgUnauthenticated)
			return
		}

		perms, err := g.resolver.Resolve(r.Context(), claims.RoleID)
		if err != nil {
			if ctxErr := r.Context().Err(); ctxErr != nil {
				g.metrics.ObserveAuth(observability.AuthAborted)
				g.logger.Info("request ended during permission resolution",
					slog.String("path", r.URL.Path), slog.Any("error", ctxErr))
				return
			}
			g.metrics.ObserveAuth(observability.AuthError)
			g.logger.Error("permission resolution failed",
				slog.Int64("subject_id", claims.SubjectID),
				slog.Int64("role_id", claims.RoleID),
				slog.String("path", r.URL.Path),
				slog.Any("error", err))
			httpx.InternalError(w)
			return
		}

		id := Identity{
			SubjectID:   claims.SubjectID,
			RoleID:      claims.RoleID,
			DisplayName: claims.DisplayName,
			Permissions: perms,
		}
		g.metrics.ObserveAuth(observability.AuthAuthenticated)
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (g *Gate) authenticate(r *http.Request) (token.Claims, error) {
	raw, err := bearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return token.Claims{}, err
	}
	return g.verifier.Verify(raw)
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrCredentialAbsent
	}
	raw, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", ErrCredentialMalformed
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrCredentialMalformed
	}
	return raw, nil
}
