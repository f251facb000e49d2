// Package config loads application configuration from environment
// variables. No other package reads the environment directly. Defaults
// target local development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Config holds all application configuration.
type Config struct {
	// Env is "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL.
	BaseURL string

	// LogLevel is "debug", "info", "warn" or "error".
	LogLevel string

	// Version is reported in webhook metadata.
	Version string

	// TrustedProxies lists CIDRs whose forwarding headers are believed.
	TrustedProxies []string

	// MigrationsPath is the directory holding the SQL migrations.
	MigrationsPath string

	Database DatabaseConfig
	Redis    RedisConfig
	Webhook  WebhookConfig
	Form     FormConfig
	Feeds    FeedsConfig
}

// DatabaseConfig holds MariaDB connection parameters. DATABASE_URL, when
// set, takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is host:port; 3306 is appended when no port is given.
	Host     string
	User     string
	Password string
	Name     string

	dsnOverride string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. Built with
// FormatDSN so special characters in the password are escaped.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// ensurePort appends the default port if host has none.
func ensurePort(host, defaultPort string) string {
	if _, _, err := net.SplitHostPort(host); err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// WebhookConfig configures the call to the automation workflow.
type WebhookConfig struct {
	// URL is where new subscriptions are posted. Empty disables the call.
	URL      string
	Timeout  time.Duration
	Schedule string
}

// FormConfig holds form session and submit settings.
type FormConfig struct {
	// SessionTTL is how long an idle form session survives.
	SessionTTL time.Duration

	// SubmitLockTTL bounds how long a submit blocks a repeat submit.
	SubmitLockTTL time.Duration

	// SubmitRateLimit is the number of submits allowed per IP per minute.
	SubmitRateLimit int
}

// FeedsConfig holds feed viewer and ingest settings.
type FeedsConfig struct {
	// FallbackLatest shows the newest feeds to visitors with no submission.
	FallbackLatest bool

	// IngestKeyHash is the bcrypt hash of the ingest API key.
	IngestKeyHash string

	// IngestRateLimit is the number of ingest calls allowed per IP per minute.
	IngestRateLimit int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "development"),
		Port:           getEnvInt("PORT", 8080),
		BaseURL:        getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Version:        getEnv("APP_VERSION", "1.0.0"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES", []string{"127.0.0.1/8", "10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "newsdigest"),
			Password:        getEnv("DB_PASSWORD", "newsdigest"),
			Name:            getEnv("DB_NAME", "newsdigest"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Webhook: WebhookConfig{
			URL:      getEnv("WEBHOOK_URL", ""),
			Timeout:  getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
			Schedule: getEnv("WEBHOOK_SCHEDULE", "8AM_UTC"),
		},

		Form: FormConfig{
			SessionTTL:      getEnvDuration("SESSION_TTL", 24*time.Hour),
			SubmitLockTTL:   getEnvDuration("SUBMIT_LOCK_TTL", 30*time.Second),
			SubmitRateLimit: getEnvInt("SUBMIT_RATE_LIMIT", 10),
		},

		Feeds: FeedsConfig{
			FallbackLatest:  getEnvBool("FEED_FALLBACK_LATEST", false),
			IngestKeyHash:   getEnv("INGEST_KEY_HASH", ""),
			IngestRateLimit: getEnvInt("INGEST_RATE_LIMIT", 60),
		},
	}

	if cfg.IsProduction() && cfg.Feeds.IngestKeyHash == "" {
		return nil, fmt.Errorf("INGEST_KEY_HASH is required in production")
	}
	if cfg.Webhook.Timeout <= 0 {
		return nil, fmt.Errorf("WEBHOOK_TIMEOUT must be positive")
	}
	if cfg.Form.SubmitLockTTL < cfg.Webhook.Timeout {
		// The lock must outlive the slowest submit.
		cfg.Form.SubmitLockTTL = cfg.Webhook.Timeout + 5*time.Second
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true for "production" in any common spelling.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Env)
	return env == "production" || env == "prod"
}

// --- Helper functions for reading environment variables ---

func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "24h").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

// getEnvList reads a comma-separated list, dropping empty entries.
func getEnvList(key string, defaultVal []string) []string {
	val, ok := os.LookupEnv(key)
	if !ok {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
