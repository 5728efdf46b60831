package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvVoiceAPIKey  = "INTERVIEWROOM_VOICE_API_KEY"
	EnvBackendURL   = "INTERVIEWROOM_BACKEND_URL"
	EnvBackendToken = "INTERVIEWROOM_BACKEND_TOKEN"
	EnvDatabaseURL  = "INTERVIEWROOM_DATABASE_URL"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
//
// A .env file in the working directory is loaded first; variables already
// set in the process environment win over it. Environment overrides are
// applied after the file and before validation.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	warnings := make([]Warning, 0)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("ignoring .env: %v", err)})
	}

	cfg := Default()
	exists := true
	content, err := os.ReadFile(resolvedPath)
	switch {
	case err == nil:
		decoded, decodeWarnings, err := decode(string(content), cfg)
		if err != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
		}
		cfg = decoded
		warnings = append(warnings, decodeWarnings...)
	case errors.Is(err, os.ErrNotExist):
		exists = false
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		})
	default:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: append(warnings, validatedWarnings...),
		Exists:   exists,
	}, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvVoiceAPIKey)); v != "" {
		cfg.Voice.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendToken)); v != "" {
		cfg.Backend.AuthToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); v != "" {
		cfg.Results.DatabaseURL = v
	}
}
