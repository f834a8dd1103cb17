package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// MinBcryptCost is the lowest work factor accepted for stored password hashes.
	MinBcryptCost = 10
	// DefaultTokenTTL is the lifetime of issued bearer tokens.
	DefaultTokenTTL = 7 * 24 * time.Hour

	minProductionSecretLen = 32
	devSecret              = "dev-secret-change-me"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Client    ClientConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSOrigins           string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level   string
	Service string
	// Output is a zap sink path; empty means stdout.
	Output string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret           string
	Issuer              string
	TokenTTL            time.Duration
	BcryptCost          int
	HashWorkers         int
	LoginMaxFailures    int
	LoginFailureWindow  time.Duration
	BootstrapAdminEmail string
}

// RateLimitConfig bounds request rates on the public auth endpoints.
type RateLimitConfig struct {
	PerSecond int
	Burst     int
}

// ClientConfig is read by the command-line client.
type ClientConfig struct {
	BaseURL     string
	SessionPath string
	Timeout     time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "blog-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSOrigins:           getEnv("HTTP_CORS_ORIGINS", "http://localhost:3000"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Service: getEnv("APP_NAME", "blog-service"),
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("AUTH_JWT_SECRET", devSecret),
			Issuer:              getEnv("AUTH_TOKEN_ISSUER", "blog-service"),
			TokenTTL:            getEnvAsDuration("AUTH_TOKEN_TTL", DefaultTokenTTL),
			BcryptCost:          getEnvAsInt("AUTH_BCRYPT_COST", 12),
			HashWorkers:         getEnvAsInt("AUTH_HASH_WORKERS", runtime.NumCPU()),
			LoginMaxFailures:    getEnvAsInt("AUTH_LOGIN_MAX_FAILURES", 10),
			LoginFailureWindow:  getEnvAsDuration("AUTH_LOGIN_FAILURE_WINDOW", 15*time.Minute),
			BootstrapAdminEmail: strings.ToLower(strings.TrimSpace(os.Getenv("AUTH_BOOTSTRAP_ADMIN_EMAIL"))),
		},
		RateLimit: RateLimitConfig{
			PerSecond: getEnvAsInt("AUTH_RATE_LIMIT_PER_SECOND", 5),
			Burst:     getEnvAsInt("AUTH_RATE_LIMIT_BURST", 20),
		},
		Client: ClientConfig{
			BaseURL:     strings.TrimRight(getEnv("BLOG_API_URL", "http://127.0.0.1:8080"), "/"),
			SessionPath: getEnv("BLOG_SESSION_PATH", defaultSessionPath()),
			Timeout:     getEnvAsDuration("BLOG_CLIENT_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient reads only what the command-line client needs. Server settings
// are not validated so the client works with any server environment.
func LoadClient() (ClientConfig, LoggerConfig) {
	_ = godotenv.Load()

	client := ClientConfig{
		BaseURL:     strings.TrimRight(getEnv("BLOG_API_URL", "http://127.0.0.1:8080"), "/"),
		SessionPath: getEnv("BLOG_SESSION_PATH", defaultSessionPath()),
		Timeout:     getEnvAsDuration("BLOG_CLIENT_TIMEOUT", 10*time.Second),
	}
	logger := LoggerConfig{
		Level:   getEnv("BLOG_CLIENT_LOG_LEVEL", "warn"),
		Service: "blog-client",
		Output:  "stderr",
	}
	return client, logger
}

// Validate checks invariants that must hold before any component starts.
func (c *Config) Validate() error {
	if c.Auth.BcryptCost < MinBcryptCost {
		return fmt.Errorf("AUTH_BCRYPT_COST must be at least %d", MinBcryptCost)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("AUTH_TOKEN_TTL must be positive")
	}
	if c.Auth.HashWorkers <= 0 {
		c.Auth.HashWorkers = 1
	}
	if c.App.IsProduction() {
		if c.Auth.JWTSecret == devSecret {
			return errors.New("AUTH_JWT_SECRET must be set in production")
		}
		if len(c.Auth.JWTSecret) < minProductionSecretLen {
			return fmt.Errorf("AUTH_JWT_SECRET must be at least %d bytes in production", minProductionSecretLen)
		}
	}
	return nil
}

// IsProduction reports whether the service runs with production safeguards.
func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Env, "production")
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "blog-session.db"
	}
	return dir + string(os.PathSeparator) + "blog-session.db"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
