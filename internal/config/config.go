// Package config provides centralized configuration management for stopload.
// It loads configuration from an optional YAML file and environment variables
// with sensible defaults, and validates all settings on startup to fail fast
// on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// Every setting can be configured via environment variables; the env var name
// is the section prefix followed by the field name (e.g. DATABASE_URL).
type Config struct {
	Database DatabaseConfig `envPrefix:"DATABASE_"`
	Import   ImportConfig   `envPrefix:"IMPORT_"`
	Server   ServerConfig   `envPrefix:"SERVER_"`
	Logging  LoggingConfig  `envPrefix:"LOG_"`
	Metrics  MetricsConfig  `envPrefix:"METRICS_"`

	Predictions PredictionsConfig `envPrefix:"PREDICTIONS_"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required).
	// DB_URL is accepted as a fallback for compatibility.
	URL string `env:"URL" validate:"required"`

	// MaxConns bounds the serve pool. The import run always uses one connection.
	MaxConns int `env:"MAX_CONNS" envDefault:"4" validate:"min=1"`

	MinConns int `env:"MIN_CONNS" envDefault:"0" validate:"min=0"`

	MaxConnLifetime time.Duration `env:"MAX_CONN_LIFETIME" envDefault:"1h"`

	MaxConnIdleTime time.Duration `env:"MAX_CONN_IDLE_TIME" envDefault:"30m"`
}

// ImportConfig holds settings for the stops import run.
type ImportConfig struct {
	// File is the stops.txt (or GTFS .zip) to load (default: stops.txt)
	File string `env:"FILE" envDefault:"stops.txt" validate:"required"`

	// ProgressInterval is how many rows pass between progress log lines.
	ProgressInterval int `env:"PROGRESS_INTERVAL" envDefault:"1000" validate:"min=1"`
}

// ServerConfig holds HTTP settings for the lookup server.
type ServerConfig struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`

	Port int `env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`

	ReadTimeout time.Duration `env:"READ_TIMEOUT" envDefault:"15s" validate:"min=0"`

	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s" validate:"min=0"`

	IdleTimeout time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s" validate:"min=0"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s" validate:"gt=0"`

	// RequestTimeout is the middleware timeout for requests. Zero disables it.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s" validate:"min=0"`

	// APIKeys, when set, are required in X-API-Key on /api routes.
	APIKeys []string `env:"API_KEYS" envSeparator:","`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:"," validate:"dive,cidr|ip"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LEVEL" envDefault:"info" validate:"oneof=debug info warn warning error"`

	// Format is the log format: text or json (default: text)
	Format string `env:"FORMAT" envDefault:"text" validate:"oneof=text json"`
}

// MetricsConfig controls the Prometheus endpoint of the lookup server.
type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Path    string `env:"PATH" envDefault:"/debug/prometheus" validate:"startswith=/"`
}

// PredictionsConfig points the server at the NextBus public XML feed.
type PredictionsConfig struct {
	FeedURL string `env:"FEED_URL" envDefault:"https://webservices.nextbus.com/service/publicXMLFeed" validate:"required,url"`

	// Agency is the NextBus agency tag (default: ttc)
	Agency string `env:"AGENCY" envDefault:"ttc" validate:"required"`

	// Timeout bounds one feed request.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s" validate:"gt=0"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
