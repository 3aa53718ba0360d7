// Package handler provides HTTP handlers for all API endpoints.
// Sync handlers talk to the sync store directly; schedule handlers go through
// the provider chain and the response cache. There is no service layer.
package handler

import (
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/api/respond"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/cache"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/config"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/provider"
	"github.com/mrscheiner/Season-Pass-Manager-v2.0-sub000/internal/syncstore"
)

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store    syncstore.Store
	cache    *cache.Cache
	schedule provider.Source
	cfg      *config.Config
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Handler with shared dependencies. schedule may be nil, in
// which case the schedule endpoint reports NO_SCHEDULE.
func New(store syncstore.Store, c *cache.Cache, schedule provider.Source, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:    store,
		cache:    c,
		schedule: schedule,
		cfg:      cfg,
		validate: newValidator(),
		logger:   logger,
		now:      time.Now,
	}
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, status, and the active sync store driver.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.Private(w, http.StatusOK, map[string]interface{}{
		"name":    "Season Pass Manager Sync API",
		"version": "2.0.0",
		"status":  "running",
		"docs":    "/docs",
		"driver":  h.cfg.SyncStoreDriver,
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Description Returns basic health status and timestamp.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.Private(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckStore verifies the sync store backend is reachable.
// @Summary Sync store health check
// @Description Pings the configured sync store driver.
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/store [get]
func (h *Handler) HealthCheckStore(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("Sync store health check failed", "error", err)
		respond.Private(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"store":     "unreachable",
			"driver":    h.cfg.SyncStoreDriver,
			"error":     "Sync store check failed",
			"timestamp": h.now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.Private(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"store":     "connected",
		"driver":    h.cfg.SyncStoreDriver,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckCache returns cache statistics.
// @Summary Cache health check
// @Description Returns in-memory schedule cache statistics (active keys, expired keys).
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.Private(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"cache":     h.cache.Stats(),
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}
