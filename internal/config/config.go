// Package config provides configuration management for the race-odds service.
package config

import (
	"fmt"
	"time"

	"github.com/yourusername/race-odds/internal/engine"
	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/scoring"
)

// History store backends
const (
	BackendNone     = "none"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Engine   engine.Config  `mapstructure:"engine" validate:"required"`
	Scoring  scoring.Tables `mapstructure:"scoring" validate:"required"`
	History  HistoryConfig  `mapstructure:"history" validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	LogFormat   string `mapstructure:"log_format" validate:"required,oneof=json text"`
}

// HistoryConfig selects and tunes the history store.
type HistoryConfig struct {
	Backend  string                 `mapstructure:"backend" validate:"required,oneof=none file sqlite postgres http"`
	File     string                 `mapstructure:"file"`
	Matching history.MatchTables    `mapstructure:"matching"`
	Adjuster history.AdjusterConfig `mapstructure:"adjuster"`
	Cache    CacheConfig            `mapstructure:"cache"`
	// ProbeSchedule is how often the history source is pinged for the
	// history_source_up gauge; empty disables the probe.
	ProbeSchedule string `mapstructure:"probe_schedule"`
}

// CacheConfig configures the history lookup cache.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gt=0"`
	MaxSize int           `mapstructure:"max_size" validate:"gt=0"`
	// FlushSchedule is a cron spec; empty disables scheduled flushes.
	FlushSchedule string `mapstructure:"flush_schedule"`
}

// DatabaseConfig represents PostgreSQL connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"gte=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"gte=0"`
}

// SQLiteConfig represents the embedded SQLite history database.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RemoteConfig represents a remote history service reached over HTTP.
type RemoteConfig struct {
	BaseURL        string  `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey         string  `mapstructure:"api_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	RateLimit      float64 `mapstructure:"rate_limit" validate:"gte=0"`
	Burst          int     `mapstructure:"burst" validate:"gte=0"`
	MaxRetries     int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
}

// ServerConfig represents the HTTP API configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// SecretsConfig points at an optional AWS Secrets Manager secret.
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AWSRegion  string `mapstructure:"aws_region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// ServerAddress returns the host:port the API listens on.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
