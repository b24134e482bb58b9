package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/yourusername/race-odds/internal/engine"
	"github.com/yourusername/race-odds/internal/models"
)

// CustomValidator wraps the validator instance with custom validation functions
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation rules
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("factor", validateFactor)
	_ = v.RegisterValidation("surface", validateSurface)

	return &CustomValidator{validator: v}
}

// Validate validates the configuration struct
func Validate(cfg *Config) error {
	cv := NewValidator()

	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return err
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	env := fl.Field().String()
	return env == "development" || env == "staging" || env == "production"
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateFactor(fl validator.FieldLevel) bool {
	return models.IsKnownFactor(fl.Field().String())
}

func validateSurface(fl validator.FieldLevel) bool {
	_, ok := models.ParseSurface(fl.Field().String())
	return ok
}

// validateCrossField checks rules spanning several sections.
func validateCrossField(cfg *Config) error {
	var errs []string

	if err := engine.ValidateModels(cfg.Engine.Models, cfg.Engine.MixingTolerance); err != nil {
		errs = append(errs, fmt.Sprintf("engine.models: %v", err))
	}

	if err := cfg.Scoring.Check(); err != nil {
		errs = append(errs, fmt.Sprintf("scoring: %v", err))
	}

	switch cfg.History.Backend {
	case BackendFile:
		if cfg.History.File == "" {
			errs = append(errs, "history.file is required for the file backend")
		}
	case BackendSQLite:
		if cfg.SQLite.Path == "" {
			errs = append(errs, "sqlite.path is required for the sqlite backend")
		}
	case BackendPostgres:
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			errs = append(errs, "database host, name and user are required for the postgres backend")
		}
		if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
			errs = append(errs, "production database must use SSL (ssl_mode cannot be 'disable')")
		}
	case BackendHTTP:
		if cfg.Remote.BaseURL == "" {
			errs = append(errs, "remote.base_url is required for the http backend")
		}
		if cfg.IsProduction() && !strings.HasPrefix(cfg.Remote.BaseURL, "https://") {
			errs = append(errs, "production remote history service must use https")
		}
	}

	if cfg.History.Backend != BackendNone && cfg.History.Cache.FlushSchedule != "" {
		if _, err := cron.ParseStandard(cfg.History.Cache.FlushSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("history.cache.flush_schedule: %v", err))
		}
	}
	if cfg.History.Backend != BackendNone && cfg.History.ProbeSchedule != "" {
		if _, err := cron.ParseStandard(cfg.History.ProbeSchedule); err != nil {
			errs = append(errs, fmt.Sprintf("history.probe_schedule: %v", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// formatValidationErrors converts validator errors to human-readable messages
func formatValidationErrors(errs validator.ValidationErrors) error {
	var messages []string

	for _, err := range errs {
		field := err.Namespace()
		tag := err.Tag()

		var msg string
		switch tag {
		case "required":
			msg = fmt.Sprintf("%s is required", field)
		case "required_if":
			msg = fmt.Sprintf("%s is required when %s", field, err.Param())
		case "min", "gte":
			msg = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max", "lte":
			msg = fmt.Sprintf("%s must be at most %s", field, err.Param())
		case "gt":
			msg = fmt.Sprintf("%s must be greater than %s", field, err.Param())
		case "lt":
			msg = fmt.Sprintf("%s must be less than %s", field, err.Param())
		case "gtfield", "gtefield":
			msg = fmt.Sprintf("%s must not be below %s", field, err.Param())
		case "oneof":
			msg = fmt.Sprintf("%s must be one of: %s", field, err.Param())
		case "url":
			msg = fmt.Sprintf("%s must be a valid URL", field)
		case "environment":
			msg = fmt.Sprintf("%s must be one of: development, staging, production", field)
		case "loglevel":
			msg = fmt.Sprintf("%s must be one of: debug, info, warn, error", field)
		case "factor":
			msg = fmt.Sprintf("%s names an unknown factor %q (known: %s)",
				field, err.Value(), strings.Join(models.KnownFactors, ", "))
		case "surface":
			msg = fmt.Sprintf("%s must be dirt, turf or synthetic", field)
		default:
			msg = fmt.Sprintf("%s failed validation: %s", field, tag)
		}

		messages = append(messages, msg)
	}

	return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(messages, "\n  - "))
}

// ValidateEnvironment checks that required runtime inputs are present for
// the selected backend.
func ValidateEnvironment(cfg *Config) error {
	if cfg.Secrets.Enabled {
		return nil
	}

	var missing []string
	if cfg.History.Backend == BackendPostgres && cfg.Database.Password == "" {
		missing = append(missing, "database.password (RACEODDS_DATABASE_PASSWORD)")
	}
	if cfg.History.Backend == BackendHTTP && cfg.Remote.APIKey == "" && cfg.IsProduction() {
		missing = append(missing, "remote.api_key (RACEODDS_REMOTE_API_KEY)")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required settings:\n  - %s", strings.Join(missing, "\n  - "))
	}

	return nil
}
