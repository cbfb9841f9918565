package auth

import "net/http"

// Decision is the outcome of evaluating the route guard.
type Decision int

const (
	// DecisionPlaceholder renders a neutral placeholder while Initializing.
	DecisionPlaceholder Decision = iota
	// DecisionRedirect sends the caller to the sign-in entry point.
	DecisionRedirect
	// DecisionRender renders the protected content unchanged.
	DecisionRender
)

func (d Decision) String() string {
	switch d {
	case DecisionPlaceholder:
		return "placeholder"
	case DecisionRedirect:
		return "redirect"
	case DecisionRender:
		return "render"
	default:
		return "unknown"
	}
}

// Decide evaluates the guard for one snapshot.
func Decide(s Snapshot) Decision {
	if s.Loading {
		return DecisionPlaceholder
	}
	if s.Session == nil {
		return DecisionRedirect
	}
	return DecisionRender
}

// Guard gates protected handlers on the State found in the request context.
// It is evaluated on every request, so a sign-out by another participant
// takes effect on the next page load.
type Guard struct {
	// SignInPath is where callers without a session are sent.
	SignInPath string
	// Placeholder is served while the State is Initializing. When nil, an
	// empty 503 is written.
	Placeholder http.Handler
	// Unauthenticated, when set, is served instead of the redirect.
	Unauthenticated http.Handler
}

// Middleware wraps next with the guard.
func (g Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch Decide(FromContext(r.Context()).Snapshot()) {
		case DecisionPlaceholder:
			if g.Placeholder != nil {
				g.Placeholder.ServeHTTP(w, r)
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
		case DecisionRedirect:
			if g.Unauthenticated != nil {
				g.Unauthenticated.ServeHTTP(w, r)
				return
			}
			http.Redirect(w, r, g.SignInPath, http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}
