package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	validConfigPath     = "testdata/valid_config.yaml"
	expansionConfigPath = "testdata/expansion_config.yaml"
	invalidConfigPath   = "testdata/invalid_config.yaml"
)

// TestLoadValidConfig tests loading a valid configuration file
func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.Name != "race-odds-test" {
		t.Errorf("expected app name 'race-odds-test', got '%s'", cfg.App.Name)
	}
	if cfg.History.Backend != BackendSQLite {
		t.Errorf("expected sqlite backend, got '%s'", cfg.History.Backend)
	}

	require.Len(t, cfg.Engine.Models, 2)
	assert.Equal(t, "weighted", cfg.Engine.Models[0].Name)
	assert.True(t, cfg.Engine.Models[0].UseHistory)
	assert.InDelta(t, 0.7, cfg.Engine.Models[0].MixingWeight, 1e-9)
	assert.InDelta(t, 2.0, cfg.Engine.Models[0].Weights["form"], 1e-9)
	assert.InDelta(t, 12.0, cfg.Engine.Models[1].Prior, 1e-9)
	assert.Equal(t, 4, cfg.Engine.Workers)

	assert.Equal(t, 500*time.Millisecond, cfg.History.Adjuster.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.History.Cache.TTL)
	assert.Equal(t, []string{"https://example.com"}, cfg.Server.CORSOrigins)
}

// TestLoadMergesDefaults checks that partial sections keep their defaults
func TestLoadMergesDefaults(t *testing.T) {
	cfg, err := Load(validConfigPath)
	require.NoError(t, err)

	// overridden
	assert.InDelta(t, 0.7, cfg.Scoring.Decay, 1e-9)
	assert.InDelta(t, 60.0, cfg.Scoring.ReferenceWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.History.Adjuster.Sensitivity.Surface, 1e-9)

	// defaults
	assert.NotEmpty(t, cfg.Scoring.Designations)
	assert.NotEmpty(t, cfg.Scoring.PriceBuckets)
	assert.InDelta(t, 150.0, cfg.Scoring.ReferenceTime, 1e-9)
	assert.Equal(t, 12, cfg.Scoring.Slot.DefaultFieldSize)
	assert.InDelta(t, 0.25, cfg.History.Adjuster.Sensitivity.Distance, 1e-9)
	assert.InDelta(t, 1.5, cfg.History.Adjuster.MaxFactor, 1e-9)
	assert.Contains(t, cfg.History.Matching.Suffixes, "SKG")
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.InDelta(t, 1e-9, cfg.Engine.MixingTolerance, 1e-12)
}

// TestLoadMissingFile tests error handling for missing config file
func TestLoadMissingFile(t *testing.T) {
	_, err := Load("testdata/nonexistent.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadWithDefaultsMissingFile(t *testing.T) {
	cfg, err := LoadWithDefaults(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "race-odds", cfg.App.Name)
	assert.Equal(t, BackendNone, cfg.History.Backend)
	require.Len(t, cfg.Engine.Models, 2)
	assert.Equal(t, "weighted", cfg.Engine.Models[0].Name)
	assert.Equal(t, "bayesian", cfg.Engine.Models[1].Name)
	assert.NoError(t, Validate(cfg))
}

// TestLoadWithEnvOverride tests environment variable overrides
func TestLoadWithEnvOverride(t *testing.T) {
	t.Setenv("RACEODDS_APP_NAME", "overridden-name")
	t.Setenv("RACEODDS_SERVER_PORT", "7070")
	t.Setenv("RACEODDS_SCORING_DECAY", "0.9")

	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	assert.Equal(t, "overridden-name", cfg.App.Name)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.InDelta(t, 0.9, cfg.Scoring.Decay, 1e-9)
}

// TestLoadConfigEnvironmentVariableExpansion tests ${VAR} expansion in the config file
func TestLoadConfigEnvironmentVariableExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "expanded-secret")

	cfg, err := Load(expansionConfigPath)
	require.NoError(t, err)

	assert.Equal(t, "expanded-secret", cfg.Database.Password)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.NoError(t, Validate(cfg))
	assert.NoError(t, ValidateEnvironment(cfg))
}

func TestValidateEnvironmentMissingPassword(t *testing.T) {
	os.Unsetenv("TEST_DB_PASSWORD")

	cfg, err := Load(expansionConfigPath)
	require.NoError(t, err)

	err = ValidateEnvironment(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.password")
}

// TestValidateSuccess tests validation of a valid configuration
func TestValidateSuccess(t *testing.T) {
	cfg, err := Load(validConfigPath)
	if err != nil {
		t.Fatalf("expected no error loading config, got %v", err)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("expected no validation error, got %v", err)
	}
}

func TestValidateUnknownFactor(t *testing.T) {
	cfg, err := Load(invalidConfigPath)
	require.NoError(t, err)

	err = Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jockey")
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "invalid environment",
			mutate:  func(c *Config) { c.App.Environment = "invalid" },
			wantErr: "development, staging, production",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.App.LogLevel = "verbose" },
			wantErr: "debug, info, warn, error",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.History.Backend = "redis" },
			wantErr: "must be one of",
		},
		{
			name:    "mixing weights do not sum to one",
			mutate:  func(c *Config) { c.Engine.Models[0].MixingWeight = 0.9 },
			wantErr: "mixing weights sum",
		},
		{
			name:    "duplicate model names",
			mutate:  func(c *Config) { c.Engine.Models[1].Name = c.Engine.Models[0].Name },
			wantErr: "defined twice",
		},
		{
			name:    "sqlite backend without path",
			mutate:  func(c *Config) { c.SQLite.Path = "" },
			wantErr: "sqlite.path",
		},
		{
			name: "postgres backend without host",
			mutate: func(c *Config) {
				c.History.Backend = BackendPostgres
				c.Database.Host = ""
			},
			wantErr: "postgres backend",
		},
		{
			name: "production postgres without ssl",
			mutate: func(c *Config) {
				c.App.Environment = "production"
				c.History.Backend = BackendPostgres
				c.Database.SSLMode = "disable"
			},
			wantErr: "must use SSL",
		},
		{
			name: "http backend without base url",
			mutate: func(c *Config) {
				c.History.Backend = BackendHTTP
				c.Remote.BaseURL = ""
			},
			wantErr: "remote.base_url",
		},
		{
			name:    "bad flush schedule",
			mutate:  func(c *Config) { c.History.Cache.FlushSchedule = "every tuesday" },
			wantErr: "flush_schedule",
		},
		{
			name:    "bad probe schedule",
			mutate:  func(c *Config) { c.History.ProbeSchedule = "hourly-ish" },
			wantErr: "probe_schedule",
		},
		{
			name:    "rest floor above peak",
			mutate:  func(c *Config) { c.Scoring.RestFloor = 2 },
			wantErr: "rest_floor",
		},
		{
			name:    "inverted weight clamp",
			mutate:  func(c *Config) { c.Scoring.WeightFloor = 20 },
			wantErr: "scoring",
		},
		{
			name:    "secrets enabled without region",
			mutate:  func(c *Config) { c.Secrets = SecretsConfig{Enabled: true, SecretName: "race-odds"} },
			wantErr: "AWSRegion is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(validConfigPath)
			require.NoError(t, err)

			tt.mutate(cfg)
			err = Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestGetDatabaseDSN tests DSN generation
func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "localhost", Port: 5432, Name: "race_odds", User: "u", Password: "p", SSLMode: "disable",
	}}

	assert.Equal(t, "postgres://u:p@localhost:5432/race_odds?sslmode=disable", cfg.GetDatabaseDSN())
}

func TestServerAddress(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Host: "127.0.0.1", Port: 8080}}
	assert.Equal(t, "127.0.0.1:8080", cfg.ServerAddress())
}

// TestIsProduction tests environment check functions
func TestIsProduction(t *testing.T) {
	cfg := &Config{App: AppConfig{Environment: "production"}}

	if !cfg.IsProduction() {
		t.Error("expected IsProduction() to return true")
	}
	if cfg.IsDevelopment() {
		t.Error("expected IsDevelopment() to return false")
	}
}

type fakeSecrets struct {
	out *secretsmanager.GetSecretValueOutput
	err error
}

func (f fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if aws.ToString(in.SecretId) != "race-odds/prod" {
		return nil, errors.New("unexpected secret id")
	}
	return f.out, nil
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Password: "from-file"},
		Secrets:  SecretsConfig{Enabled: true, AWSRegion: "eu-west-1", SecretName: "race-odds/prod"},
	}
	client := fakeSecrets{out: &secretsmanager.GetSecretValueOutput{
		SecretString: aws.String(`{"database_password":"from-aws","history_api_key":"key-123"}`),
	}}

	require.NoError(t, ApplySecrets(context.Background(), cfg, client))
	assert.Equal(t, "from-aws", cfg.Database.Password)
	assert.Equal(t, "key-123", cfg.Remote.APIKey)
}

func TestApplySecretsKeepsValuesWhenSecretEmpty(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Password: "from-file"},
		Secrets:  SecretsConfig{SecretName: "race-odds/prod"},
	}
	client := fakeSecrets{out: &secretsmanager.GetSecretValueOutput{
		SecretBinary: []byte(`{}`),
	}}

	require.NoError(t, ApplySecrets(context.Background(), cfg, client))
	assert.Equal(t, "from-file", cfg.Database.Password)
}

func TestApplySecretsErrors(t *testing.T) {
	cfg := &Config{Secrets: SecretsConfig{SecretName: "race-odds/prod"}}

	err := ApplySecrets(context.Background(), cfg, fakeSecrets{err: errors.New("access denied")})
	assert.ErrorContains(t, err, "access denied")

	err = ApplySecrets(context.Background(), cfg, fakeSecrets{out: &secretsmanager.GetSecretValueOutput{}})
	assert.ErrorIs(t, err, errNoSecretData)
}

func TestLoadSecretsDisabledIsNoop(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{Password: "kept"}}
	require.NoError(t, LoadSecretsFromAWS(context.Background(), cfg))
	assert.Equal(t, "kept", cfg.Database.Password)
}
