// Package config provides centralized configuration management for the
// resolution engine. It loads configuration from environment variables with
// sensible defaults, supporting different deployment environments
// (development, staging, production).
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration settings for the weather engine. It
// aggregates configuration for all components including the HTTP server,
// resolution policy, provider access, storage, and observability tools.
type Config struct {
	Server        ServerConfig
	Engine        EngineConfig
	Provider      ProviderConfig
	Redis         RedisConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// ServerConfig contains HTTP server settings and timeouts.
// These settings control how the service handles incoming requests.
type ServerConfig struct {
	Port         string
	MetricsPort  string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// EngineConfig contains the resolution policy knobs: how far ahead live
// forecasts are attempted and how long a live fetch may run before the
// fallback takes over.
type EngineConfig struct {
	ForecastHorizonDays int
	FetchTimeout        time.Duration
	LiveCacheTTL        time.Duration
	FallbackCacheTTL    time.Duration
}

// ProviderConfig contains settings for the upstream forecast and geocoding
// APIs. An empty APIKey disables the live path entirely; the engine then
// serves synthesized fallback records only.
type ProviderConfig struct {
	BaseURL     string
	GeoBaseURL  string
	APIKey      string
	HTTPTimeout time.Duration
}

// RedisConfig contains settings for Redis cache and rate limiting.
// Redis is used for distributed caching and rate limiting across instances.
type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig contains PostgreSQL database connection settings.
type DatabaseConfig struct {
	Enabled               bool
	Host                  string
	Port                  int
	User                  string
	Password              string
	Database              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
}

// ObservabilityConfig contains settings for distributed tracing and metrics.
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
}

// RateLimitConfig contains rate limiting settings.
type RateLimitConfig struct {
	RPS    int
	Window time.Duration
}

// Load reads configuration from environment variables and returns a Config instance.
//
// Returns:
//   - *Config: Configuration with values from environment or defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Engine: EngineConfig{
			ForecastHorizonDays: getEnvAsInt("FORECAST_HORIZON_DAYS", 7),
			FetchTimeout:        getEnvAsDuration("FETCH_TIMEOUT", 6*time.Second),
			LiveCacheTTL:        getEnvAsDuration("LIVE_CACHE_TTL", 30*time.Minute),
			FallbackCacheTTL:    getEnvAsDuration("FALLBACK_CACHE_TTL", 6*time.Hour),
		},
		Provider: ProviderConfig{
			BaseURL:     getEnv("PROVIDER_BASE_URL", "https://api.openweathermap.org"),
			GeoBaseURL:  getEnv("GEOCODING_BASE_URL", "https://api.openweathermap.org"),
			APIKey:      getEnv("PROVIDER_API_KEY", ""),
			HTTPTimeout: getEnvAsDuration("PROVIDER_HTTP_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", true),
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     10,
			MinIdleConns: 5,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:               getEnvAsBool("DATABASE_ENABLED", false),
			Host:                  getEnv("DB_HOST", "localhost"),
			Port:                  getEnvAsInt("DB_PORT", 5432),
			User:                  getEnv("DB_USER", "weather"),
			Password:              getEnv("DB_PASSWORD", ""),
			Database:              getEnv("DB_NAME", "weather_engine"),
			SSLMode:               getEnv("DB_SSLMODE", "disable"),
			MaxConnections:        25,
			MaxIdleConnections:    5,
			ConnectionMaxLifetime: 5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			ServiceName:    "weather-engine",
			ServiceVersion: getEnv("VERSION", "1.0.0"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:     0.1,
		},
		RateLimit: RateLimitConfig{
			RPS:    getEnvAsInt("RATE_LIMIT_RPS", 100),
			Window: time.Minute,
		},
	}
}

// getEnv retrieves an environment variable value with a fallback default.
//
// Parameters:
//   - key: Environment variable name
//   - defaultValue: Value to use if variable is not set
//
// Returns:
//   - string: Environment value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer with a fallback default.
//
// Parameters:
//   - key: Environment variable name
//   - defaultValue: Value to use if variable is not set or invalid
//
// Returns:
//   - int: Parsed integer value or default
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean with a fallback default.
//
// Parameters:
//   - key: Environment variable name
//   - defaultValue: Value to use if variable is not set or invalid
//
// Returns:
//   - bool: Parsed boolean value or default
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}

	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration with a
// fallback default. Values use Go duration syntax, for example "30s".
//
// Parameters:
//   - key: Environment variable name
//   - defaultValue: Value to use if variable is not set or invalid
//
// Returns:
//   - time.Duration: Parsed duration value or default
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}

	return defaultValue
}
