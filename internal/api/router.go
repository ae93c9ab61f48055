// Package api provides the HTTP API for powderlines.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/powderlines/powderlines/internal/api/handler"
	"github.com/powderlines/powderlines/internal/api/middleware"
	"github.com/powderlines/powderlines/internal/resort"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	Resorts     *resort.Service

	// AdminAPIKey guards the admin endpoints. Empty disables them.
	AdminAPIKey string
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Set default service name if not provided
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "powderlines-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))   // Structured logging
	r.Use(middleware.Recovery(cfg.Logger)) // Panic recovery
	r.Use(chimiddleware.RealIP)            // Real IP extraction

	// Initialize handlers
	resortHandler := handler.NewResortHandler(cfg.Resorts, cfg.Logger)
	trailHandler := handler.NewTrailHandler(cfg.Resorts, cfg.Logger)
	adminHandler := handler.NewAdminHandler(cfg.Resorts, cfg.Logger)
	statusHandler := handler.NewStatusHandler(cfg.Resorts, cfg.Logger)

	// Load balancer liveness stays outside the rate-limited API stack.
	r.Get("/healthz", statusHandler.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(middleware.StandardRateLimit)) // 100 req/min per IP
		r.Use(middleware.SecurityHeaders)
		r.Use(middleware.RequireTLS) // TLS enforcement (enabled via REQUIRE_TLS=true)
		r.Use(middleware.ContentTypeJSON)

		r.Route("/resorts", func(r chi.Router) {
			r.Get("/", resortHandler.List)
			r.Get("/summary", resortHandler.Summary)
			r.Get("/open", resortHandler.Open)
			r.Get("/search", resortHandler.Search)
			r.Get("/nearby", resortHandler.Nearby)

			r.Route("/slug/{slug}", func(r chi.Router) {
				r.Get("/", resortHandler.BySlug)
				r.Get("/trails", trailHandler.BySlug)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", resortHandler.ByID)
				r.Get("/trails", trailHandler.ByID)
			})
		})

		r.Get("/status", statusHandler.Status)

		// Admin endpoints - strict rate limiting plus the key check
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.AdminRateLimit)) // 10 req/min per IP
			r.Use(middleware.AdminKey(cfg.AdminAPIKey))

			r.Delete("/resorts/{id}", adminHandler.DisableResort)
		})
	})

	return r
}
