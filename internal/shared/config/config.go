package config

import (
	"fmt"
	"os"
	"time"

	"starfield-server/internal/shared/utils"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Starfield StarfieldConfig
}

type ServerConfig struct {
	Port            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsPath  string // empty uses the migrations embedded in the binary
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	TokenExpiration time.Duration
	Issuer          string
}

type FrontendConfig struct {
	URL       string
	CORSDebug bool
}

type LoggingConfig struct {
	Level      string
	JSONFormat bool
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	TrustProxy        bool
}

type StarfieldConfig struct {
	MaxStars          int
	CacheTTL          time.Duration
	MemoryCacheSize   int
	DefaultParamsFile string
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using system environment variables")
	}

	config := Load()

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

// Load reads the configuration from the environment without validating it.
func Load() *Config {
	return &Config{
		Server:    loadServerConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Auth:      loadAuthConfig(),
		Frontend:  loadFrontendConfig(),
		Logging:   loadLoggingConfig(),
		RateLimit: loadRateLimitConfig(),
		Starfield: loadStarfieldConfig(),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:            utils.GetEnv("SERVER_PORT", "8080"),
		Environment:     utils.GetEnv("ENVIRONMENT", "development"),
		ReadTimeout:     utils.GetEnvDuration("SERVER_READ_TIMEOUT_SECONDS", 15, time.Second),
		WriteTimeout:    utils.GetEnvDuration("SERVER_WRITE_TIMEOUT_SECONDS", 60, time.Second),
		IdleTimeout:     utils.GetEnvDuration("SERVER_IDLE_TIMEOUT_SECONDS", 60, time.Second),
		ShutdownTimeout: utils.GetEnvDuration("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 10, time.Second),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:            utils.GetEnv("DB_HOST", "localhost"),
		Port:            utils.GetEnv("DB_PORT", "5432"),
		User:            utils.GetEnv("DB_USER", "postgres"),
		Password:        utils.GetEnv("DB_PASSWORD", "postgres"),
		Name:            utils.GetEnv("DB_NAME", "starfield"),
		SSLMode:         utils.GetEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    utils.GetEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    utils.GetEnvInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: utils.GetEnvDuration("DB_CONN_MAX_LIFETIME_MINUTES", 5, time.Minute),
		MigrationsPath:  utils.GetEnv("DB_MIGRATIONS_PATH", ""),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		Enabled:  utils.GetEnv("REDIS_ENABLED", "true") == "true",
		URL:      utils.GetEnv("REDIS_URL", ""),
		Host:     utils.GetEnv("REDIS_HOST", "localhost"),
		Port:     utils.GetEnv("REDIS_PORT", "6379"),
		Password: utils.GetEnv("REDIS_PASSWORD", ""),
		DB:       utils.GetEnvInt("REDIS_DB", 0),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:       utils.GetEnv("JWT_SECRET", ""),
		TokenExpiration: utils.GetEnvDuration("JWT_EXPIRATION_HOURS", 24, time.Hour),
		Issuer:          utils.GetEnv("JWT_ISSUER", "starfield-server"),
	}
}

func loadFrontendConfig() FrontendConfig {
	return FrontendConfig{
		URL:       utils.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		CORSDebug: utils.GetEnv("CORS_DEBUG", "") == "true",
	}
}

func loadLoggingConfig() LoggingConfig {
	environment := utils.GetEnv("ENVIRONMENT", "development")

	return LoggingConfig{
		Level:      utils.GetEnv("LOG_LEVEL", "debug"),
		JSONFormat: environment == "production" || utils.GetEnv("LOG_FORMAT", "text") == "json",
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Enabled:           utils.GetEnv("RATE_LIMIT_ENABLED", "true") == "true",
		RequestsPerSecond: utils.GetEnvFloat("RATE_LIMIT_REQUESTS_PER_SECOND", 10),
		BurstSize:         utils.GetEnvInt("RATE_LIMIT_BURST_SIZE", 20),
		TrustProxy:        utils.GetEnv("RATE_LIMIT_TRUST_PROXY", "false") == "true",
	}
}

func loadStarfieldConfig() StarfieldConfig {
	return StarfieldConfig{
		MaxStars:          utils.GetEnvInt("STARFIELD_MAX_STARS", 2_000_000),
		CacheTTL:          utils.GetEnvDuration("STARFIELD_CACHE_TTL_MINUTES", 60, time.Minute),
		MemoryCacheSize:   utils.GetEnvInt("STARFIELD_MEMORY_CACHE_SIZE", 16),
		DefaultParamsFile: utils.GetEnv("STARFIELD_DEFAULT_PARAMS_FILE", ""),
	}
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}

	if c.Starfield.MaxStars <= 0 {
		return fmt.Errorf("STARFIELD_MAX_STARS must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstSize <= 0) {
		return fmt.Errorf("RATE_LIMIT_REQUESTS_PER_SECOND and RATE_LIMIT_BURST_SIZE must be positive")
	}

	return nil
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
