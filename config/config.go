package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/seaward/offer-service/internal/http/ratelimit"
)

// EnvPrefix is prepended to every environment override, e.g. OFFER_SERVICE_SERVER_PORT
const EnvPrefix = "OFFER_SERVICE"

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Hydration  HydrationConfig  `mapstructure:"hydration"`
	SailingAPI SailingAPIConfig `mapstructure:"sailing_api"`
	Filter     FilterConfig     `mapstructure:"filter"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	InternalAPIKey string        `mapstructure:"internal_api_key"`
}

// DatabaseConfig holds database connection configuration.
// Only used when storage.type is postgres.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// StorageConfig selects the blob store backing the cache and hidden groups
type StorageConfig struct {
	Type       string `mapstructure:"type"` // memory, local, badger, postgres
	BasePath   string `mapstructure:"base_path"`
	BadgerPath string `mapstructure:"badger_path"`
	Table      string `mapstructure:"table"`
}

// HydrationConfig controls itinerary cache hydration
type HydrationConfig struct {
	StalenessWindow time.Duration `mapstructure:"staleness_window"`
	Concurrency     int           `mapstructure:"concurrency"`
	SweepEnabled    bool          `mapstructure:"sweep_enabled"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

// SailingAPIConfig configures the sailing-search client
type SailingAPIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialBackoffMs  int           `mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int           `mapstructure:"max_backoff_ms"`
}

// RateLimitConfig returns the outbound throttle settings
func (c SailingAPIConfig) RateLimitConfig() ratelimit.Config {
	return ratelimit.Config{
		RequestsPerSecond: c.RequestsPerSecond,
		MaxRetries:        c.MaxRetries,
		InitialBackoffMs:  c.InitialBackoffMs,
		MaxBackoffMs:      c.MaxBackoffMs,
	}
}

// FilterConfig configures the offer filter
type FilterConfig struct {
	HiddenMemoSize int `mapstructure:"hidden_memo_size"`
}

// RateLimitConfig holds inbound per-client rate limiting
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// TelemetryConfig holds OpenTelemetry exporter configuration
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(); err != nil {
		// .env is optional
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Validate checks the configuration for values the service cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return ErrInvalidConfig{Field: "server.port", Reason: "must be between 1 and 65535"}
	}
	switch c.Storage.Type {
	case "memory", "local", "badger", "postgres":
	default:
		return ErrInvalidConfig{Field: "storage.type", Reason: "must be one of memory, local, badger, postgres"}
	}
	if c.Storage.Type == "postgres" && c.Database.URL == "" {
		return ErrInvalidConfig{Field: "database.url", Reason: "required when storage.type is postgres"}
	}
	if c.Storage.Type == "badger" && c.Storage.BadgerPath == "" {
		return ErrInvalidConfig{Field: "storage.badger_path", Reason: "required when storage.type is badger"}
	}
	if c.Hydration.StalenessWindow <= 0 {
		return ErrInvalidConfig{Field: "hydration.staleness_window", Reason: "must be positive"}
	}
	if c.Hydration.Concurrency < 1 {
		return ErrInvalidConfig{Field: "hydration.concurrency", Reason: "must be at least 1"}
	}
	if c.Hydration.SweepEnabled && c.Hydration.SweepInterval <= 0 {
		return ErrInvalidConfig{Field: "hydration.sweep_interval", Reason: "must be positive when sweeping is enabled"}
	}
	if c.SailingAPI.Timeout <= 0 {
		return ErrInvalidConfig{Field: "sailing_api.timeout", Reason: "must be positive"}
	}
	if c.SailingAPI.MaxRetries < 0 {
		return ErrInvalidConfig{Field: "sailing_api.max_retries", Reason: "must be non-negative"}
	}
	if c.SailingAPI.MaxBackoffMs < c.SailingAPI.InitialBackoffMs {
		return ErrInvalidConfig{Field: "sailing_api.max_backoff_ms", Reason: "must be >= initial_backoff_ms"}
	}
	if c.Filter.HiddenMemoSize < 1 {
		return ErrInvalidConfig{Field: "filter.hidden_memo_size", Reason: "must be at least 1"}
	}
	return nil
}

// ErrInvalidConfig is returned when the configuration is invalid.
type ErrInvalidConfig struct {
	Field  string
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return e.Field + ": " + e.Reason
}

// loadEnvFile loads the first .env file found by parsing KEY=VALUE lines into the environment
func loadEnvFile() error {
	for _, path := range []string{".", "./config"} {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			if err := loadDotEnvFile(envFile); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads a .env file and sets environment variables that are not already set
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "\"'")
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// bindEnvVars binds conventional unprefixed variables to config keys
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	v.BindEnv("server.host", EnvPrefix+"_SERVER_HOST", "HOST")
	v.BindEnv("server.internal_api_key", EnvPrefix+"_SERVER_INTERNAL_API_KEY", "INTERNAL_API_KEY")
	v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("storage.base_path", EnvPrefix+"_STORAGE_BASE_PATH", "STORAGE_PATH")
	v.BindEnv("sailing_api.base_url", EnvPrefix+"_SAILING_API_BASE_URL", "SAILING_API_URL")
	v.BindEnv("telemetry.endpoint", EnvPrefix+"_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.internal_api_key", "")

	// Database defaults
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_path", "./data/blobs")
	v.SetDefault("storage.badger_path", "./data/badger")
	v.SetDefault("storage.table", "kv_blobs")

	// Hydration defaults
	v.SetDefault("hydration.staleness_window", 6*time.Hour)
	v.SetDefault("hydration.concurrency", 4)
	v.SetDefault("hydration.sweep_enabled", false)
	v.SetDefault("hydration.sweep_interval", 15*time.Minute)

	// Sailing API defaults. Hydration failures are never retried.
	v.SetDefault("sailing_api.base_url", "http://localhost:8080/api")
	v.SetDefault("sailing_api.timeout", 30*time.Second)
	v.SetDefault("sailing_api.requests_per_second", 2.0)
	v.SetDefault("sailing_api.max_retries", 0)
	v.SetDefault("sailing_api.initial_backoff_ms", 100)
	v.SetDefault("sailing_api.max_backoff_ms", 30000)

	// Filter defaults
	v.SetDefault("filter.hidden_memo_size", 10000)

	// Inbound rate limit defaults
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "opentelemetry-collector:4317")
	v.SetDefault("telemetry.service_name", "offer-service")
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}
