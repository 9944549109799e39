package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/outpost9/accountd/internal/httputil"
	"github.com/outpost9/accountd/pkg/auth"
	"github.com/outpost9/accountd/pkg/domain"
)

type contextKey string

const (
	// PrincipalKey is the context key for the authenticated principal.
	PrincipalKey contextKey = "principal"
	// ClaimsKey is the context key for the session token claims.
	ClaimsKey contextKey = "claims"
)

// Authenticate creates middleware that validates session tokens for one
// principal kind. The token must be a session token of the same kind the
// route is mounted for; a pending two-factor token never passes.
func Authenticate(kind domain.Kind, tokens *auth.TokenService, store auth.PrincipalStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing authorization")
				return
			}

			claims, err := tokens.VerifySession(tokenString)
			if err != nil || claims.Kind != kind {
				httputil.Error(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			id, err := uuid.Parse(claims.Subject)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid token subject")
				return
			}

			principal, err := store.GetByID(r.Context(), claims.Kind, id)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "account no longer exists")
				return
			}
			if !principal.IsActive() {
				httputil.Error(w, http.StatusForbidden, "account is not active")
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalKey, principal.StripSecrets())
			ctx = context.WithValue(ctx, ClaimsKey, claims)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows the request through only when the authenticated
// principal holds one of the given roles. Apply after Authenticate.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !hasRole(principal.Role, roles) {
				httputil.Error(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOrRole allows the request through when the {id} URL parameter
// matches the authenticated principal, or when the principal holds one of
// the given roles. Apply after Authenticate.
func RequireSelfOrRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := GetPrincipal(r.Context())
			if !ok {
				httputil.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if principal.ID.String() == chi.URLParam(r, "id") || hasRole(principal.Role, roles) {
				next.ServeHTTP(w, r)
				return
			}
			httputil.Error(w, http.StatusForbidden, "insufficient role")
		})
	}
}

// GetPrincipal extracts the authenticated principal from the request context.
func GetPrincipal(ctx context.Context) (*domain.Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(*domain.Principal)
	return principal, ok
}

// GetClaims extracts the session token claims from the request context.
func GetClaims(ctx context.Context) (*auth.SessionClaims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.SessionClaims)
	return claims, ok
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

func hasRole(role string, allowed []string) bool {
	for _, a := range allowed {
		if role == a {
			return true
		}
	}
	return false
}
