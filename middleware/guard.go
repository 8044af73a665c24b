package middleware

import (
	"context"
	"net/http"
	"strings"

	authcore "github.com/authcore-dev/authcore"
	"github.com/authcore-dev/authcore/token"
)

type claimsContextKey struct{}

// ClaimsFromContext describes the claimsfromcontext operation and its observable behavior.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims, ok
}

// RequireAuth returns middleware that verifies the access token signature
// without touching Redis. Revoked sessions pass until the token expires.
func RequireAuth(engine *authcore.Engine) func(http.Handler) http.Handler {
	return guard(engine, false)
}

// RequireSession returns middleware that verifies the access token and
// confirms the backing session is still alive.
func RequireSession(engine *authcore.Engine) func(http.Handler) http.Handler {
	return guard(engine, true)
}

// RequirePermission returns middleware that additionally checks the
// validated roles for a permission within an RBAC guard.
func RequirePermission(engine *authcore.Engine, rbacGuard, permission string) func(http.Handler) http.Handler {
	inner := guard(engine, true)
	return func(next http.Handler) http.Handler {
		return inner(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok || !engine.HasPermission(rbacGuard, claims.Roles, permission) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func guard(engine *authcore.Engine, strict bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			raw, ok := accessToken(engine, r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			var (
				claims *token.Claims
				err    error
			)
			if strict {
				claims, err = engine.ValidateAccessTokenStrict(r.Context(), raw)
			} else {
				claims, err = engine.ValidateAccessToken(raw)
			}
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessToken(engine *authcore.Engine, r *http.Request) (string, bool) {
	if raw, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return raw, true
	}

	name := engine.Config().Cookies.AccessName
	if name == "" {
		return "", false
	}
	cookie, err := r.Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	raw := value[len(bearer):]
	if raw == "" {
		return "", false
	}

	return raw, true
}
