package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yourusername/race-odds/internal/engine"
	"github.com/yourusername/race-odds/internal/history"
	"github.com/yourusername/race-odds/internal/scoring"
)

// EnvPrefix prefixes every environment override, e.g. RACEODDS_APP_LOG_LEVEL.
const EnvPrefix = "RACEODDS"

// DefaultPath is used when no configuration path is given.
const DefaultPath = "config/config.yaml"

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME}).
// The file must exist.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(data)
}

// LoadWithDefaults behaves like Load but falls back to defaults and environment
// variables when the file does not exist.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return load(data)
}

func load(data []byte) (*Config, error) {
	v := newViper()

	if len(data) > 0 {
		// Expand environment variables in the configuration (${VAR} syntax)
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "race-odds")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "text")

	eng := engine.DefaultConfig()
	v.SetDefault("engine.workers", eng.Workers)
	v.SetDefault("engine.mixing_tolerance", eng.MixingTolerance)
	v.SetDefault("engine.models", toGeneric(eng.Models))

	v.SetDefault("scoring", toGeneric(scoring.DefaultTables()))

	v.SetDefault("history.backend", BackendNone)
	v.SetDefault("history.matching", toGeneric(history.DefaultMatchTables()))
	adj := history.DefaultAdjusterConfig()
	v.SetDefault("history.adjuster.timeout", adj.Timeout)
	v.SetDefault("history.adjuster.reference_position", adj.ReferencePosition)
	v.SetDefault("history.adjuster.unplaced_position", adj.UnplacedPosition)
	v.SetDefault("history.adjuster.distance_tolerance", adj.DistanceTolerance)
	v.SetDefault("history.adjuster.min_factor", adj.MinFactor)
	v.SetDefault("history.adjuster.max_factor", adj.MaxFactor)
	v.SetDefault("history.adjuster.min_records", adj.MinRecords)
	v.SetDefault("history.adjuster.sensitivity", toGeneric(adj.Sensitivity))
	v.SetDefault("history.cache.enabled", true)
	v.SetDefault("history.cache.ttl", 15*time.Minute)
	v.SetDefault("history.cache.max_size", 10000)
	v.SetDefault("history.cache.flush_schedule", "0 5 * * *")
	v.SetDefault("history.probe_schedule", "@every 1m")

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("sqlite.path", "data/history.db")

	v.SetDefault("remote.timeout_seconds", 10)
	v.SetDefault("remote.rate_limit", 5.0)
	v.SetDefault("remote.burst", 5)
	v.SetDefault("remote.max_retries", 3)

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// toGeneric converts a struct or slice of structs into maps keyed by their json
// tags, which match the mapstructure tags, so viper can merge file values over it.
func toGeneric(in interface{}) interface{} {
	data, err := json.Marshal(in)
	if err != nil {
		panic(fmt.Sprintf("config: marshal defaults: %v", err))
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("config: unmarshal defaults: %v", err))
	}
	return out
}
