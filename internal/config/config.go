package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/goldmafia/clubhouse/internal/pinning"
)

// Config holds all application configuration.
// It is built once at startup and passed down explicitly.
type Config struct {
	// Server
	ServerAddr string
	Env        string // "development" or "production"
	AppBaseURL string

	// Database
	DatabaseURL string

	// Auth
	JWTSigningKey string

	// Pinata / IPFS
	PinataJWT     string
	PinataGateway string
	PinataAPIURL  string
	PinataTimeout time.Duration

	// Uploads
	MaxRequestBytes  int64
	UploadRatePerMin int

	// Redis (for PubSub horizontal scaling)
	RedisURL   string
	PubSubType string // "memory" or "redis"

	// R2 mirror of pinned content (optional)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2Bucket          string

	// Metrics
	MetricsNamespace string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		ServerAddr:  getEnvOrDefault("SERVER_ADDR", "0.0.0.0:8080"),
		Env:         getEnvOrDefault("APP_ENV", "development"),
		AppBaseURL:  getEnvOrDefault("APP_BASE_URL", "http://localhost:5173"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	cfg.JWTSigningKey = os.Getenv("JWT_SIGNING_KEY")

	// Pinata. A missing JWT only disables uploads.
	cfg.PinataJWT = os.Getenv("PINATA_JWT")
	cfg.PinataGateway = getEnvOrDefault("PINATA_GATEWAY", pinning.DefaultGateway)
	cfg.PinataAPIURL = getEnvOrDefault("PINATA_API_URL", pinning.DefaultAPIURL)

	var err error
	if cfg.PinataTimeout, err = getEnvDuration("PINATA_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}

	maxRequest, err := getEnvInt("MAX_REQUEST_BYTES", 25*1024*1024)
	if err != nil {
		return nil, err
	}
	cfg.MaxRequestBytes = int64(maxRequest)
	if cfg.UploadRatePerMin, err = getEnvInt("UPLOAD_RATE_PER_MIN", 30); err != nil {
		return nil, err
	}

	// Redis / PubSub configuration
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.PubSubType = getEnvOrDefault("PUBSUB_TYPE", "memory")

	// R2 mirror configuration
	cfg.R2AccountID = os.Getenv("R2_ACCOUNT_ID")
	cfg.R2AccessKeyID = os.Getenv("R2_ACCESS_KEY_ID")
	cfg.R2SecretAccessKey = os.Getenv("R2_SECRET_ACCESS_KEY")
	cfg.R2Bucket = os.Getenv("R2_BUCKET")

	cfg.MetricsNamespace = getEnvOrDefault("METRICS_NAMESPACE", "clubhouse")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ServerAddr == "" {
		return fmt.Errorf("SERVER_ADDR is required")
	}
	switch c.PubSubType {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when PUBSUB_TYPE=redis")
		}
	default:
		return fmt.Errorf("PUBSUB_TYPE must be memory or redis, got %q", c.PubSubType)
	}
	if c.MaxRequestBytes <= 0 {
		return fmt.Errorf("MAX_REQUEST_BYTES must be positive")
	}
	if c.UploadRatePerMin <= 0 {
		return fmt.Errorf("UPLOAD_RATE_PER_MIN must be positive")
	}
	if c.PinataTimeout <= 0 {
		return fmt.Errorf("PINATA_TIMEOUT must be positive")
	}
	if strings.Contains(c.PinataGateway, "://") {
		return fmt.Errorf("PINATA_GATEWAY must be a host name without scheme, got %q", c.PinataGateway)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Pinning returns the gateway configuration.
func (c *Config) Pinning() pinning.Config {
	return pinning.Config{
		JWT:     c.PinataJWT,
		Gateway: c.PinataGateway,
		APIURL:  c.PinataAPIURL,
	}
}

// R2Enabled reports whether every R2 setting is present.
func (c *Config) R2Enabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2Bucket != ""
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
