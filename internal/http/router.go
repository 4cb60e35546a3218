package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jw6ventures/henboard/internal/auth"
	"github.com/jw6ventures/henboard/internal/config"
	"github.com/jw6ventures/henboard/internal/hen"
	"github.com/jw6ventures/henboard/internal/http/csrf"
	"github.com/jw6ventures/henboard/internal/http/ratelimit"
	"github.com/jw6ventures/henboard/internal/metrics"
	"github.com/jw6ventures/henboard/internal/ui"
)

// HealthChecker reports whether a dependency can serve requests.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps carries the services the router hands to its handlers.
type Deps struct {
	Source    hen.ExperimentSource
	Health    HealthChecker
	Auth      *auth.Service
	Calendars *ui.Registry

	// LoginLimiter guards the login endpoints, APILimiter the JSON API.
	LoginLimiter *ratelimit.Limiter
	APILimiter   *ratelimit.Limiter
}

// NewRouter wires all HTTP routes for the dashboard and its API.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if deps.Health != nil {
			if err := deps.Health.HealthCheck(ctx); err != nil {
				http.Error(w, "unready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.PrometheusEnabled {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	uiHandler := ui.NewHandler(cfg, deps.Source, deps.Auth, deps.Calendars)

	r.Group(func(r chi.Router) {
		r.Use(csrf.Middleware(cfg))
		r.Get("/login", uiHandler.LoginForm)
		r.With(limit(deps.LoginLimiter)).Post("/login", uiHandler.Login)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Use(limit(deps.LoginLimiter))
		r.Get("/login", deps.Auth.BeginOAuth)
		r.Get("/callback", deps.Auth.HandleOAuthCallback)
	})

	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.RequireSession)
		r.Use(csrf.Middleware(cfg))

		r.Get("/", uiHandler.Dashboard)
		r.Get("/about", uiHandler.ShowPanel("about"))
		r.Post("/logout", uiHandler.Logout)

		r.Route("/experiments/calendar", func(r chi.Router) {
			r.Get("/", uiHandler.ShowPanel("experiments"))
			r.Post("/shift", uiHandler.ShiftCalendar)
			r.Post("/refresh", uiHandler.RefreshCalendar)
			r.Get("/cells/{addr}", uiHandler.CellInfo)
			r.Get("/nodes/{row}", uiHandler.NodeInfo)
		})
		r.Get("/experiments/calendar.ics", uiHandler.ReservationFeed)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(limit(deps.APILimiter))
		r.Use(deps.Auth.RequireAPIAuth)
		r.Get("/calendar", uiHandler.CalendarJSON)
		r.Get("/calendar.ics", uiHandler.APIReservationFeed)
	})

	return r
}

func limit(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	if l == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return l.Middleware()
}
