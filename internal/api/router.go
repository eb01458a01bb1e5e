// Package api provides the HTTP API of the data acquisition service.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dataacquisition/das/internal/acquisition"
	"github.com/dataacquisition/das/internal/api/handler"
	"github.com/dataacquisition/das/internal/api/middleware"
	"github.com/dataacquisition/das/internal/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics

	// Verifier validates bearer tokens on the request endpoints.
	Verifier middleware.TokenValidator
	Service  *acquisition.Service

	// Dependencies are pinged by the readiness endpoint, keyed by name.
	Dependencies map[string]handler.Pinger

	// Circuits lists the circuit breakers reported by the readiness endpoint.
	Circuits *resilience.Registry

	// RequireTLS rejects plain-HTTP requests forwarded by the load balancer.
	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "das-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))
	r.Use(middleware.ContentTypeJSON)

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Dependencies, cfg.Circuits, cfg.Logger)
	requestHandler := handler.NewAcquisitionHandler(cfg.Service, cfg.Logger)
	callbackHandler := handler.NewCallbackHandler(cfg.Service, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Verifier)

	r.Route("/rest/das", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Request endpoints (authenticated) - user-based rate limiting
		r.Route("/requests", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireJSON)
			r.With(middleware.RateLimitByUser(middleware.WriteRateLimit)).Post("/", requestHandler.Create)
			r.Route("/{requestId}", func(r chi.Router) {
				r.With(middleware.RateLimitByUser(middleware.StandardRateLimit)).Get("/", requestHandler.Get)
				r.With(middleware.RateLimitByUser(middleware.WriteRateLimit)).Put("/state", requestHandler.UpdateState)
			})
		})

		// Callbacks from the downloader and the metadata parser
		r.Route("/callbacks", func(r chi.Router) {
			r.Use(middleware.RateLimitByIP(middleware.CallbackRateLimit))
			r.Use(middleware.RequireJSON)
			r.Post("/downloader", callbackHandler.Downloader)
			r.Post("/metadata", callbackHandler.Metadata)
		})
	})

	return r
}
