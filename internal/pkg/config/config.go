// Package config loads the tracker settings from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	SecretKey string `env:"SECRET_KEY"`
	PageSize  int    `env:"PAGE_SIZE, default=20"`

	Session   SessionConfig
	Database  DatabaseConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig

	ActivityWorkers int `env:"ACTIVITY_WORKERS, default=4"`
}

type SessionConfig struct {
	CookieName string        `env:"SESSION_COOKIE, default=sessionid"`
	TTL        time.Duration `env:"SESSION_TTL,    default=336h"`
	Secure     bool          `env:"SESSION_SECURE, default=false"`
}

type DatabaseConfig struct {
	Driver       string `env:"DB_DRIVER,      default=sqlite"`
	URL          string `env:"DATABASE_URL,   default=tracker.db"`
	MaxOpenConns int    `env:"DB_MAX_OPEN,    default=25"`
	MaxIdleConns int    `env:"DB_MAX_IDLE,    default=5"`
	Debug        bool   `env:"DB_DEBUG,       default=false"`
}

// MongoConfig enables the activity trail when URI is set.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=issue_tracker"`
}

// RedisConfig enables idempotent ticket creation when Addr is set.
type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

type RateLimitConfig struct {
	LoginRate  float64 `env:"LOGIN_RATE,  default=1"`
	LoginBurst int     `env:"LOGIN_BURST, default=5"`
}

type CORSConfig struct {
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*"`
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// LoadFrom is Load with an explicit lookuper, used by tests.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.IsProduction() && c.SecretKey == "" {
		return errors.New("SECRET_KEY is required in production")
	}
	if c.SecretKey == "" {
		c.SecretKey = "insecure-development-secret"
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize)
	}
	return nil
}
