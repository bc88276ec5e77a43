package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the Creator-Insights application.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Auth       AuthConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Cache      CacheConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the optional tracking-event warehouse sink.
type ClickHouseConfig struct {
	Enabled  bool
	Addr     string
	Database string
	User     string
	Password string
}

type AuthConfig struct {
	Enabled   bool
	MasterKey string
	SkipPaths []string
}

type RateLimitConfig struct {
	Enabled     bool
	RPS         float64
	Burst       int
	ReportRPS   float64
	ReportBurst int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// CacheConfig controls the Redis report-view cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("INSIGHTS_HTTP_ADDR", ":8080"),
			Env:             getEnv("INSIGHTS_ENV", "development"),
			ShutdownTimeout: getDurationEnv("INSIGHTS_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolEnv("INSIGHTS_DB_ENABLED", false),
			Host:     getEnv("INSIGHTS_DB_HOST", "localhost"),
			Port:     getIntEnv("INSIGHTS_DB_PORT", 5432),
			User:     getEnv("INSIGHTS_DB_USER", "insights"),
			Password: getEnv("INSIGHTS_DB_PASSWORD", "insights_secret"),
			DBName:   getEnv("INSIGHTS_DB_NAME", "insights"),
			SSLMode:  getEnv("INSIGHTS_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("INSIGHTS_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("INSIGHTS_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("INSIGHTS_REDIS_ENABLED", false),
			Addr:     getEnv("INSIGHTS_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("INSIGHTS_REDIS_PASSWORD", ""),
			DB:       getIntEnv("INSIGHTS_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Enabled:  getBoolEnv("INSIGHTS_CLICKHOUSE_ENABLED", false),
			Addr:     getEnv("INSIGHTS_CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("INSIGHTS_CLICKHOUSE_DB", "insights"),
			User:     getEnv("INSIGHTS_CLICKHOUSE_USER", "default"),
			Password: getEnv("INSIGHTS_CLICKHOUSE_PASSWORD", ""),
		},
		Auth: AuthConfig{
			Enabled:   getBoolEnv("INSIGHTS_AUTH_ENABLED", false),
			MasterKey: getEnv("INSIGHTS_API_KEY_MASTER", ""),
			SkipPaths: getSliceEnv("INSIGHTS_AUTH_SKIP_PATHS", []string{"/health", "/metrics"}),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getBoolEnv("INSIGHTS_RATE_LIMIT_ENABLED", true),
			RPS:         getFloatEnv("INSIGHTS_RATE_LIMIT_RPS", 500),
			Burst:       getIntEnv("INSIGHTS_RATE_LIMIT_BURST", 100),
			ReportRPS:   getFloatEnv("INSIGHTS_RATE_LIMIT_REPORT_RPS", 100),
			ReportBurst: getIntEnv("INSIGHTS_RATE_LIMIT_REPORT_BURST", 20),
		},
		Log: LogConfig{
			Level:  getEnv("INSIGHTS_LOG_LEVEL", "info"),
			Format: getEnv("INSIGHTS_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("INSIGHTS_METRICS_ENABLED", true),
			Path:    getEnv("INSIGHTS_METRICS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled: getBoolEnv("INSIGHTS_CACHE_ENABLED", true),
			TTL:     getDurationEnv("INSIGHTS_CACHE_TTL", 60*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Auth.Enabled && c.Auth.MasterKey == "" {
		return fmt.Errorf("INSIGHTS_API_KEY_MASTER is required when auth is enabled")
	}
	if c.Cache.Enabled && !c.Redis.Enabled && c.IsProduction() {
		return fmt.Errorf("INSIGHTS_CACHE_ENABLED requires INSIGHTS_REDIS_ENABLED in production")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getSliceEnv(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				result = append(result, p)
			}
		}
		return result
	}
	return def
}
