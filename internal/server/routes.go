package server

import (
	"log/slog"
	"net/http"

	"starfield-server/internal/galaxy"
	galaxyHandlers "starfield-server/internal/galaxy/handlers"
	"starfield-server/internal/middleware"
	serverHandlers "starfield-server/internal/server/handlers"
)

type Routes struct {
	db            serverHandlers.DatabasePinger
	cache         serverHandlers.CacheChecker
	galaxyService *galaxy.Service
	authenticator *middleware.Authenticator
	rateLimiter   *middleware.RateLimiter
	logger        *slog.Logger
}

// NewRoutes wires the HTTP surface. cache may be nil when redis is disabled.
func NewRoutes(db serverHandlers.DatabasePinger, cache serverHandlers.CacheChecker, galaxyService *galaxy.Service, authenticator *middleware.Authenticator, rateLimiter *middleware.RateLimiter, logger *slog.Logger) *Routes {
	return &Routes{
		db:            db,
		cache:         cache,
		galaxyService: galaxyService,
		authenticator: authenticator,
		rateLimiter:   rateLimiter,
		logger:        logger,
	}
}

func (r *Routes) Setup() *http.ServeMux {
	logger := r.logger.With("component", "routes", "operation", "setup")
	logger.Debug("Setting up application routes")

	mux := http.NewServeMux()

	healthHandler := serverHandlers.NewHealthHandler(r.db, r.cache)
	galaxyHandler := galaxyHandlers.NewGalaxyHandler(r.galaxyService)

	editor := func(h http.HandlerFunc) http.Handler {
		return r.authenticator.RequireEditor(h)
	}
	limited := func(h http.Handler) http.Handler {
		return r.rateLimiter.Middleware(h)
	}

	// Public endpoints
	mux.Handle("GET /api/server/health", healthHandler)
	mux.HandleFunc("GET /api/galaxies", galaxyHandler.ListGalaxies)
	mux.HandleFunc("GET /api/galaxies/{id}", galaxyHandler.GetGalaxy)
	mux.HandleFunc("GET /api/galaxies/{id}/stars", galaxyHandler.GetStars)
	mux.HandleFunc("GET /api/galaxies/{id}/stats", galaxyHandler.GetStats)
	mux.HandleFunc("GET /api/galaxies/{id}/generation", galaxyHandler.GetGenerationStatus)

	// Editor endpoints
	mux.Handle("POST /api/galaxies", limited(editor(galaxyHandler.CreateGalaxy)))
	mux.Handle("PUT /api/galaxies/{id}/parameters", limited(editor(galaxyHandler.UpdateParameters)))

	// Admin-only endpoints
	mux.Handle("DELETE /api/galaxies/{id}", r.authenticator.RequireAdmin(http.HandlerFunc(galaxyHandler.DeleteGalaxy)))

	logger.Info("Routes configured successfully",
		"public_endpoints", []string{"/api/server/health", "/api/galaxies", "/api/galaxies/{id}", "/api/galaxies/{id}/stars", "/api/galaxies/{id}/stats", "/api/galaxies/{id}/generation"},
		"editor_endpoints", []string{"POST /api/galaxies", "PUT /api/galaxies/{id}/parameters"},
		"admin_endpoints", []string{"DELETE /api/galaxies/{id}"},
	)

	return mux
}
