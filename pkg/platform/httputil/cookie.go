package httputil

import (
	"net/http"
	"strings"
	"time"
)

// Credential cookie names. Both cookies are HttpOnly so page scripts can
// never read them; the refresh cookie is path-scoped to the auth endpoints
// so it does not travel with data requests.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
	RefreshCookiePath = "/auth"
)

// CookieWriter stamps credential cookies with consistent attributes.
// Secure + SameSite=None lets a frontend on a different origin send them;
// development mode falls back to Lax so plain-HTTP localhost works.
type CookieWriter struct {
	Secure bool
}

func (c CookieWriter) sameSite() http.SameSite {
	if c.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SetAccessCookie attaches the access credential for the given lifetime.
func (c CookieWriter) SetAccessCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

// SetRefreshCookie attaches the refresh credential, scoped to /auth.
func (c CookieWriter) SetRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     RefreshCookiePath,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.sameSite(),
	})
}

// ClearCredentialCookies expires both credential cookies.
func (c CookieWriter) ClearCredentialCookies(w http.ResponseWriter) {
	for _, spec := range []struct{ name, path string }{
		{AccessCookieName, "/"},
		{RefreshCookieName, RefreshCookiePath},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     spec.name,
			Value:    "",
			Path:     spec.path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   c.Secure,
			SameSite: c.sameSite(),
		})
	}
}

// AccessToken extracts the access credential from the request: cookie first,
// then an Authorization: Bearer fallback for non-browser clients.
func AccessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// RefreshToken extracts the refresh credential cookie, if present.
func RefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(RefreshCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
