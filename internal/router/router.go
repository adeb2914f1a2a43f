package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"feedback-hub/internal/config"
	"feedback-hub/internal/handlers"
	"feedback-hub/internal/metrics"
	"feedback-hub/internal/middleware"
	"feedback-hub/internal/policy"
	"feedback-hub/internal/service"
)

// Deps is everything the HTTP surface needs, built once in main.
type Deps struct {
	Log      zerolog.Logger
	Config   config.Config
	Auth     *middleware.Pipeline
	Feedback *service.FeedbackService
	Users    *service.Directory
	Metrics  *metrics.Metrics
}

func New(d Deps) http.Handler {
	r := chi.NewRouter()
	cfg := d.Config
	p := d.Auth

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(d.Metrics.Instrument)
	r.Use(middleware.RateLimit(cfg.RateLimitMax, cfg.RateLimitWindow))
	r.Use(middleware.BodyLimit(cfg.BodyLimitBytes))

	// Health
	r.Get("/health", handlers.Health())
	if cfg.MetricsEnabled {
		r.Handle("/metrics", d.Metrics.Handler())
	}

	fh := handlers.NewFeedbackHTTP(d.Feedback)
	rh := handlers.NewReportsHTTP(d.Feedback)
	uh := handlers.NewUserHTTP(d.Users)
	ah := handlers.NewAuthHTTP(p.Policy())

	r.Route("/api/feedback", func(r chi.Router) {
		r.Get("/health", handlers.Health())
		r.With(p.OptionalAuth).Post("/", fh.Create())

		r.Group(func(r chi.Router) {
			r.Use(p.Authenticate)
			r.With(p.RequirePermission(policy.ViewFeedback)).Get("/", fh.List())
			r.With(p.RequirePermission(policy.ViewOwnFeedback)).Get("/mine", fh.Mine())
			r.With(p.RequirePermission(policy.ViewMetrics)).Get("/metrics/dashboard", rh.Dashboard())

			r.Route("/{id}", func(r chi.Router) {
				r.With(
					p.RequireAnyPermission(policy.ViewFeedback, policy.ViewOwnFeedback),
					p.RequireOwnership(d.Feedback.OwnerOf, policy.ViewFeedback),
				).Get("/", fh.Get())
				r.With(
					p.RequirePermission(policy.DeleteOwnFeedback),
					p.RequireOwnership(d.Feedback.OwnerOf, policy.DeleteAnyFeedback),
				).Delete("/", fh.Delete())

				r.Group(func(r chi.Router) {
					r.Use(p.RequirePermission(policy.ManageFeedback))
					r.Patch("/status", fh.UpdateStatus())
					r.Patch("/tags", fh.UpdateTags())
					r.Patch("/assign", fh.Assign())
				})
				r.With(p.RequirePermission(policy.RespondFeedback)).Post("/replies", fh.AddReply())
			})
		})
	})

	r.Route("/api/metrics", func(r chi.Router) {
		r.Use(p.Authenticate, p.RequireRoute, p.RequirePermission(policy.ViewMetrics))
		r.Get("/dashboard", rh.Dashboard())
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Use(p.Authenticate)
		r.Get("/me", ah.Me())
		r.Group(func(r chi.Router) {
			r.Use(p.RequireRoute, p.RequirePermission(policy.ManageUsers))
			r.Get("/", uh.List())
			r.Patch("/{id}/role", uh.UpdateRole())
		})
	})

	if cfg.StaticDir != "" {
		r.NotFound(handlers.SPA(cfg.StaticDir))
	} else {
		r.NotFound(handlers.NotFound())
	}
	r.MethodNotAllowed(handlers.MethodNotAllowed())

	return r
}
