package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"starfield-server/internal/shared/response"
	"starfield-server/internal/starfield"
)

const healthCheckTimeout = 2 * time.Second

type HealthResponse struct {
	Status           string `json:"status"`
	Timestamp        string `json:"timestamp"`
	Database         string `json:"database"`
	Cache            string `json:"cache"`
	AlgorithmVersion int    `json:"algorithm_version"`
}

type DatabasePinger interface {
	PingContext(ctx context.Context) error
}

type CacheChecker interface {
	Healthy(ctx context.Context) bool
}

type HealthHandler struct {
	db    DatabasePinger
	cache CacheChecker
}

// NewHealthHandler reports on db and, when it is not nil, the redis cache.
func NewHealthHandler(db DatabasePinger, cache CacheChecker) *HealthHandler {
	return &HealthHandler{db: db, cache: cache}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := slog.With("handler", "health")

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := "healthy"

	dbStatus := "disconnected"
	if err := h.db.PingContext(ctx); err == nil {
		dbStatus = "connected"
	} else {
		logger.Warn("Database ping failed", "error", err)
		status = "degraded"
	}

	cacheStatus := "memory"
	if h.cache != nil {
		if h.cache.Healthy(ctx) {
			cacheStatus = "connected"
		} else {
			logger.Warn("Redis ping failed")
			cacheStatus = "disconnected"
			status = "degraded"
		}
	}

	resp := HealthResponse{
		Status:           status,
		Timestamp:        time.Now().Format(time.RFC3339),
		Database:         dbStatus,
		Cache:            cacheStatus,
		AlgorithmVersion: starfield.AlgorithmVersion,
	}

	response.Success(w, http.StatusOK, resp)
}
