package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/middleware"
)

// API holds the dependencies of the HTTP handlers.
type API struct {
	engine  *shopauth.Engine
	cookies shopauth.CookieConfig
	metrics http.Handler
	access  bool
}

// Option configures an API.
type Option func(*API)

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *API) { a.metrics = h }
}

// WithAccessLog enables chi's request logger.
func WithAccessLog() Option {
	return func(a *API) { a.access = true }
}

// New creates an API over engine.
func New(engine *shopauth.Engine, opts ...Option) *API {
	a := &API{
		engine:  engine,
		cookies: engine.Config().Cookie,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Router returns a chi.Router with every route mounted.
func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if a.access {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(middleware.ClientIP)

	logger := a.engine.Logger()
	bruteforce := middleware.Bruteforce(a.engine, logger)

	r.Get("/healthz", a.Health)
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Get("/methods", a.ListMethods)
		r.With(bruteforce).Post("/login", a.Login)
		r.With(middleware.RequirePreAuthentication(a.engine, middleware.WithoutCSRF())).
			Get("/2fa/methods", a.ListSecondFactors)
		r.With(bruteforce, middleware.RequirePreAuthentication(a.engine)).
			Post("/2fa", a.SecondFactor)
		r.With(middleware.RequireAuthenticated(a.engine)).Post("/logout", a.Logout)
	})

	r.Route("/users/self", func(r chi.Router) {
		// Read-only, so the csrf header is not demanded.
		readOnly := middleware.RequireAuthenticated(a.engine, middleware.WithoutCSRF())
		r.With(readOnly).Get("/", a.Self)
		r.With(readOnly).Get("/2fa/new", a.NewSecondFactor)
		r.With(middleware.RequireAuthenticated(a.engine)).Post("/2fa", a.ConfirmSecondFactor)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdministrator(a.engine))
		r.Get("/ping", a.AdminPing)
	})

	r.Route("/onboarding", func(r chi.Router) {
		r.Post("/", a.BeginRegistration)
		r.With(middleware.RequireRegistration(a.engine)).Post("/credential", a.CompleteRegistration)
	})

	return r
}
