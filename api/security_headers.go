package api

import "net/http"

// pageCSP allows only same-origin scripts, styles and form targets. The
// event stream and the page reload script are both served from this origin.
const pageCSP = "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; " +
	"connect-src 'self'; form-action 'self'; frame-ancestors 'none'"

var pageHeaders = [...]struct{ name, value string }{
	{"Content-Security-Policy", pageCSP},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "same-origin"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
}

// SecurityHeaders guards the dashboard pages. HSTS is only sent when the
// request arrived over TLS, directly or through a proxy that says so.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, ph := range pageHeaders {
			h.Set(ph.name, ph.value)
		}
		if requestIsSecure(r) {
			h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}
