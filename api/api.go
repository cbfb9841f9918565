package api

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-openapi/runtime/middleware"

	"github.com/jmcleod/vocabadmin/auth"
	"github.com/jmcleod/vocabadmin/web"
)

// Navigation targets.
const (
	signInPath  = "/signin"
	signUpPath  = "/signup"
	landingPath = "/books"
)

// API holds the dependencies needed by the page and JSON handlers.
type API struct {
	state    *auth.State
	renderer *web.Renderer
	static   http.Handler
	logger   *slog.Logger
	audit    *auditLogger
	alertFn  AlertFunc
	limiter  *submissionLimiter
}

//go:embed openapi.yaml
var openapiSpec []byte

// Option configures the API instance.
type Option func(*API)

// WithLogger sets the structured logger for request and audit events.
// If not set, a default JSON logger writing to stderr is used.
func WithLogger(logger *slog.Logger) Option {
	return func(a *API) {
		a.logger = logger
	}
}

// WithAlertFunc registers a callback for anomaly alerts, such as a burst of
// rejected sign-in submissions.
func WithAlertFunc(fn AlertFunc) Option {
	return func(a *API) {
		a.alertFn = fn
	}
}

// New creates a new API instance serving state.
func New(state *auth.State, opts ...Option) (*API, error) {
	a := &API{state: state, limiter: newSubmissionLimiter()}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	a.audit = newAuditLogger(a.logger)
	if a.alertFn != nil {
		a.audit.metrics = newMetricsCollector(a.alertFn)
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	a.renderer = renderer

	static, err := web.StaticHandler()
	if err != nil {
		return nil, err
	}
	a.static = static
	return a, nil
}

// Router returns a chi.Router with every page, asset and API route mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(auth.Provide(a.state))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Mount("/api/v1", a.apiRouter())

	r.Group(func(r chi.Router) {
		r.Use(SecurityHeaders)
		r.Use(a.CSRFMiddleware)

		r.Handle("/static/*", http.StripPrefix("/static", a.static))

		r.Get("/", a.Home)
		r.Get(signInPath, a.SignInPage)
		r.Post(signInPath, a.SignIn)
		r.Get(signUpPath, a.SignUpPage)
		r.Post(signUpPath, a.SignUp)
		r.Post("/signout", a.SignOut)
		r.Get("/events", a.Events)

		// Protected pages.
		r.Group(func(r chi.Router) {
			r.Use(auth.Guard{
				SignInPath:  signInPath,
				Placeholder: http.HandlerFunc(a.checkingPlaceholder),
			}.Middleware)
			r.Get(landingPath, a.Books)
			r.Get("/admin-users", a.AdminUsers)
		})
	})

	return r
}

func (a *API) apiRouter() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})

	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/docs",
	}, nil))

	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/v1/openapi.yaml",
		Path:    "api/v1/redoc",
	}, nil))

	r.Get("/session", a.GetSession)
	r.With(requireJSON).Post("/session", a.CreateSession)
	r.Delete("/session", a.DeleteSession)

	r.Group(func(r chi.Router) {
		r.Use(auth.Guard{
			Placeholder: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusServiceUnavailable, "session state is initializing")
			}),
			Unauthenticated: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusUnauthorized, "authentication required")
			}),
		}.Middleware)
		r.Get("/books", a.ListBooks)
		r.Get("/admins", a.ListAdmins)
	})

	return r
}
