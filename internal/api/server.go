package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/api/handler"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/cache"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncstore"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(store syncstore.Store, appCache *cache.Cache, schedule provider.Source, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag", "Retry-After"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(store, appCache, schedule, cfg, logger)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/store", h.HealthCheckStore)
		r.Get("/cache", h.HealthCheckCache)
	})

	// Swagger UI
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Sync RPC
		r.Route("/sync", func(r chi.Router) {
			r.Post("/meta", h.GetSyncMeta)
			r.Post("/pull", h.PullBackup)
			r.Post("/push", h.PushBackup)
		})

		// Schedule proxy
		r.Get("/schedule", h.GetSchedule)
	})

	return r
}
