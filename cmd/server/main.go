package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"starfield-server/internal/galaxy"
	"starfield-server/internal/middleware"
	"starfield-server/internal/server"
	serverHandlers "starfield-server/internal/server/handlers"
	"starfield-server/internal/shared/config"
	"starfield-server/internal/shared/database"
	"starfield-server/internal/shared/logger"
	"starfield-server/internal/shared/redis"
	"starfield-server/internal/starfield"
	"starfield-server/migrations"
)

func main() {
	if err := config.Init(); err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Init()

	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.GlobalConfig
	log := slog.With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect()
	if err != nil {
		return err
	}
	defer db.Close()

	var schema fs.FS = migrations.FS
	if dir := cfg.Database.MigrationsPath; dir != "" {
		schema = os.DirFS(dir)
		log.Info("Using migrations from disk", "path", dir)
	}
	if err := db.RunMigrations(ctx, schema); err != nil {
		return err
	}

	redisClient, err := redis.Connect()
	if err != nil {
		return err
	}
	defer redisClient.Close()

	defaults := starfield.DefaultParameters()
	if path := cfg.Starfield.DefaultParamsFile; path != "" {
		if defaults, err = starfield.LoadParameters(path); err != nil {
			return err
		}
		log.Info("Loaded default galaxy parameters", "path", path)
	}

	// A nil *redis.Client must not reach the health handler as a non-nil interface.
	var cacheChecker serverHandlers.CacheChecker
	if redisClient != nil {
		cacheChecker = redisClient
	}

	bufferCache := galaxy.NewBufferCache(redisClient, cfg.Starfield.CacheTTL, cfg.Starfield.MemoryCacheSize, slog.Default())
	galaxyRepo := galaxy.NewRepository(db.DB, slog.Default())
	galaxyService := galaxy.NewService(galaxyRepo, bufferCache, defaults, cfg.Starfield.MaxStars, slog.Default())
	defer galaxyService.Close()

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		Enabled:           cfg.RateLimit.Enabled,
		TrustProxy:        cfg.RateLimit.TrustProxy,
	})
	defer rateLimiter.Stop()

	authenticator := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	routes := server.NewRoutes(db, cacheChecker, galaxyService, authenticator, rateLimiter, slog.Default())
	cors := middleware.NewCORS(cfg.Frontend)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      cors.Middleware(routes.Setup()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starfield server starting",
			"port", cfg.Server.Port,
			"environment", cfg.Server.Environment,
			"algorithm_version", starfield.AlgorithmVersion)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}
