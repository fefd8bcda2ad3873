package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"retailkpi/internal/config"
	"retailkpi/internal/middleware"
	"retailkpi/internal/pipeline"
)

// NewRouter assembles the middleware chain and mounts all handlers.
// The registry must be the one the pipeline metrics are registered on.
func NewRouter(cfg *config.Config, manager *pipeline.Manager, registry *prometheus.Registry, version string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Compress(5))

	rateLimiter := middleware.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, logger)
	r.Use(rateLimiter.Handler)

	healthHandler := NewHealthHandler(version)
	r.Get("/healthz", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	pipelineHandler := NewPipelineHandler(manager, RunDefaults{
		CustomersFile: cfg.Paths.CustomersFile,
		OrdersFile:    cfg.Paths.OrdersFile,
		Engine:        cfg.Pipeline.Engine,
		Timeout:       cfg.Pipeline.RunTimeout,
	}, logger)

	r.Route("/api", func(r chi.Router) {
		pipelineHandler.RegisterRoutes(r)
	})

	return r
}
