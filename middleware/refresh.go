package middleware

import (
	"errors"
	"net/http"

	authcore "github.com/authcore-dev/authcore"
)

// AutoRefresh returns middleware that transparently rotates the token pair
// when the access cookie is expired but the refresh cookie is still valid.
// Fresh cookies are written before the wrapped handler runs, so downstream
// guards see the new access token.
//
// AutoRefresh only acts on cookie-based clients; requests carrying an
// Authorization header pass through untouched.
func AutoRefresh(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil || r.Header.Get("Authorization") != "" {
				next.ServeHTTP(w, r)
				return
			}

			cookies := engine.Config().Cookies
			access, err := r.Cookie(cookies.AccessName)
			if err == nil && access.Value != "" {
				if _, err := engine.ValidateAccessToken(access.Value); err == nil {
					next.ServeHTTP(w, r)
					return
				} else if !errors.Is(err, authcore.ErrTokenExpired) {
					next.ServeHTTP(w, r)
					return
				}
			}

			refresh, err := r.Cookie(cookies.RefreshName)
			if err != nil || refresh.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			pair, err := engine.Refresh(r.Context(), refresh.Value)
			if err != nil {
				engine.ClearTokenCookies(w)
				next.ServeHTTP(w, r)
				return
			}

			engine.WriteTokenCookies(w, pair)
			r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
			next.ServeHTTP(w, r)
		})
	}
}
