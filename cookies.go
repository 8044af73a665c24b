package authcore

import (
	"net/http"
	"time"
)

// WriteTokenCookies describes the writetokencookies operation and its observable behavior.
//
// Cookies are always HttpOnly. Secure, SameSite, Domain, and Path come
// from the configured CookieConfig.
func (e *Engine) WriteTokenCookies(w http.ResponseWriter, pair *TokenPair) {
	if e == nil || pair == nil {
		return
	}

	cookies := e.config.Cookies
	http.SetCookie(w, &http.Cookie{
		Name:     cookies.AccessName,
		Value:    pair.AccessToken,
		Domain:   cookies.Domain,
		Path:     cookies.Path,
		MaxAge:   int(e.config.JWT.AccessTTL / time.Second),
		Secure:   cookies.Secure,
		HttpOnly: true,
		SameSite: cookies.SameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     cookies.RefreshName,
		Value:    pair.RefreshToken,
		Domain:   cookies.Domain,
		Path:     cookies.Path,
		MaxAge:   int(e.config.JWT.RefreshTTL / time.Second),
		Secure:   cookies.Secure,
		HttpOnly: true,
		SameSite: cookies.SameSite,
	})
}

// ClearTokenCookies describes the cleartokencookies operation and its observable behavior.
func (e *Engine) ClearTokenCookies(w http.ResponseWriter) {
	if e == nil {
		return
	}

	cookies := e.config.Cookies
	for _, name := range []string{cookies.AccessName, cookies.RefreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Domain:   cookies.Domain,
			Path:     cookies.Path,
			MaxAge:   -1,
			Secure:   cookies.Secure,
			HttpOnly: true,
			SameSite: cookies.SameSite,
		})
	}
}
