package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/jmcleod/vocabadmin/internal/uuid"
)

const (
	csrfCookieName = "vocabadmin_csrf"
	csrfFieldName  = "csrf_token"
)

// CSRFMiddleware enforces double-submit cookie CSRF protection on form
// posts: the hidden csrf_token field must equal the CSRF cookie. Safe
// methods (GET, HEAD, OPTIONS) are exempt.
func (a *API) CSRFMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(csrfCookieName)
		if err != nil || cookie.Value == "" {
			http.Error(w, "missing CSRF token", http.StatusForbidden)
			return
		}
		field := r.PostFormValue(csrfFieldName)
		if subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(field)) != 1 {
			http.Error(w, "invalid CSRF token", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// csrfToken returns the caller's CSRF token, issuing a new cookie when the
// request carries none. Pages embed the token in every form they render.
func csrfToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	token := uuid.New()
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   requestIsSecure(r),
		SameSite: http.SameSiteLaxMode,
	})
	return token
}
