package middleware

import (
	"log/slog"
	"net/http"

	"starfield-server/internal/shared/config"

	"github.com/rs/cors"
)

var (
	allowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	// Browsers hide non-safelisted response headers from scripts unless exposed.
	exposedHeaders = []string{"X-Star-Count", "X-Star-Stride", "X-Disk-Count", "X-Request-ID", "X-Star-Source", "ETag"}
)

type CORSMiddleware struct {
	*cors.Cors
}

func NewCORS(cfg config.FrontendConfig) *CORSMiddleware {
	logger := slog.With("component", "cors", "operation", "setup")
	logger.Debug("Setting up CORS middleware")

	allowedOrigins := []string{cfg.URL}

	corsConfig := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   []string{"Content-Type", "Authorization", "If-None-Match"},
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: true,
		Debug:            cfg.CORSDebug,
	})

	logger.Info("CORS middleware configured",
		"allowed_origins", allowedOrigins,
		"allowed_methods", allowedMethods,
		"exposed_headers", exposedHeaders,
		"allow_credentials", true,
		"debug_mode", cfg.CORSDebug,
	)

	return &CORSMiddleware{corsConfig}
}

func (c *CORSMiddleware) Middleware(h http.Handler) http.Handler {
	return c.Cors.Handler(h)
}
