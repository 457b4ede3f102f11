package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MinBcryptCost is the lowest accepted password hashing cost.
const MinBcryptCost = 12

// DefaultJWTSecret is the placeholder secret. It is refused in production mode.
const DefaultJWTSecret = "change-me-in-production"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // "development" or "production"
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`            // "sqlite" or "postgres"
	DSN             string `mapstructure:"dsn"`               // Connection string
	LogLevel        string `mapstructure:"log_level"`         // GORM log level; empty follows log.level
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`    // Maximum idle connections (Postgres)
	MaxOpenConns    int    `mapstructure:"max_open_conns"`    // Maximum open connections (Postgres)
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // Connection max lifetime in minutes (Postgres)
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	Issuer            string        `mapstructure:"issuer"`
	BcryptCost        int           `mapstructure:"bcrypt_cost"`
	DefaultRoleKey    string        `mapstructure:"default_role_key"`     // role given to self-registered users
	SuperAdminRoleKey string        `mapstructure:"super_admin_role_key"` // users with this role cannot be deleted or disabled
}

// RateLimitConfig holds request throttling configuration
type RateLimitConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Backend    string        `mapstructure:"backend"`     // "memory" or "valkey"
	ValkeyAddr string        `mapstructure:"valkey_addr"` // e.g. "localhost:6379"
	Requests   int           `mapstructure:"requests"`
	Window     time.Duration `mapstructure:"window"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format string `mapstructure:"format"` // "json" or "text"
	Level  string `mapstructure:"level"`  // "debug", "info", "warn", "error"
}

// Load reads configuration from .env, an optional config file and environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/dongui/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("DONGUI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration produced by the built-in defaults alone.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are plain scalars; decoding them cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 50000)
	v.SetDefault("server.mode", "development")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "./dongui.db")
	v.SetDefault("database.log_level", "")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("auth.jwt_secret", DefaultJWTSecret)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.issuer", "dongui")
	v.SetDefault("auth.bcrypt_cost", MinBcryptCost)
	v.SetDefault("auth.default_role_key", "STUDENT")
	v.SetDefault("auth.super_admin_role_key", "SUPER_ADMIN")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.backend", "memory")
	v.SetDefault("ratelimit.valkey_addr", "localhost:6379")
	v.SetDefault("ratelimit.requests", 10)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("log.format", "text")
	v.SetDefault("log.level", "info")
}

// Validate rejects settings that would weaken authentication.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret must not be empty")
	}
	if c.Server.Mode == "production" && c.Auth.JWTSecret == DefaultJWTSecret {
		return errors.New("auth.jwt_secret must be changed from the default in production mode")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("auth.token_ttl must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Auth.BcryptCost < MinBcryptCost {
		return fmt.Errorf("auth.bcrypt_cost must be at least %d, got %d", MinBcryptCost, c.Auth.BcryptCost)
	}
	if c.Auth.DefaultRoleKey == "" || c.Auth.SuperAdminRoleKey == "" {
		return errors.New("auth.default_role_key and auth.super_admin_role_key are required")
	}
	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case "memory", "valkey":
		default:
			return fmt.Errorf("unsupported ratelimit backend: %s (supported: memory, valkey)", c.RateLimit.Backend)
		}
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			return errors.New("ratelimit.requests and ratelimit.window must be positive")
		}
	}
	return nil
}
