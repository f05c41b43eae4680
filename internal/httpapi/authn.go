package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"identra.org/internal/identity"
	"identra.org/internal/obs"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

var publicPaths = []string{
	"/v1/auth/register",
	"/v1/auth/login",
	"/v1/auth/refresh",
	"/v1/auth/logout",
	"/metrics",
	"/healthz",
	"/readyz",
	"/",
}
var publicPrefixes = []string{
	"/v1/oauth/",
}

// withAuth verifies the bearer token and resolves its principal. Every
// failure collapses into one generic 401 so callers learn nothing about
// the cause.
func (a *API) withAuth(next http.Handler) http.Handler {
	if a == nil || a.codec == nil || a.resolver == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		raw, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			obs.CountTokenVerification("missing")
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := a.codec.Verify(raw)
		if err != nil {
			obs.CountTokenVerification("invalid")
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		principal, err := a.resolver.Resolve(r.Context(), claims)
		if err != nil {
			obs.CountTokenVerification("unresolved")
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		obs.CountTokenVerification("ok")

		ctx := identity.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requirePermission enforces a permission guard on the context principal.
func requirePermission(ctx context.Context, required ...string) error {
	principal, ok := identity.PrincipalFromContext(ctx)
	if !ok {
		return identity.ErrPrincipalNotFound
	}
	return identity.CheckPermissions(principal.Grants(), required)
}

// userFromContext returns the context principal when it is a user.
func userFromContext(ctx context.Context) (*identity.UserPrincipal, bool) {
	principal, ok := identity.PrincipalFromContext(ctx)
	if !ok {
		return nil, false
	}
	user, ok := principal.(*identity.UserPrincipal)
	return user, ok
}

func guard(w http.ResponseWriter, r *http.Request, required ...string) bool {
	err := requirePermission(r.Context(), required...)
	if err == nil {
		return true
	}
	var insufficient *identity.InsufficientPermissionError
	if errors.As(err, &insufficient) {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":   "insufficient permission",
			"missing": insufficient.Missing,
		})
		return false
	}
	writeError(w, r, http.StatusUnauthorized, "unauthorized")
	return false
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	raw := strings.TrimSpace(header[len(bearer):])
	if raw == "" {
		return "", errors.New("missing bearer token")
	}
	return raw, nil
}

func isPublicPath(path string) bool {
	for _, p := range publicPaths {
		if path == p {
			return true
		}
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
