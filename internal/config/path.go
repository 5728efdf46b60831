package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.toml location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "interviewroom", "config.toml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "interviewroom", "config.toml"), nil
}

// ExpandUserPath expands a leading "~/" to the user home directory.
func ExpandUserPath(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return raw
	}
	if !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw, "~/"))
}

// ResultsDir returns the configured results directory or the XDG state default.
func ResultsDir(cfg Config) (string, error) {
	if dir := ExpandUserPath(cfg.Results.Dir); dir != "" {
		return dir, nil
	}
	if state := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); state != "" {
		return filepath.Join(state, "interviewroom", "results"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for results dir")
	}
	return filepath.Join(home, ".local", "state", "interviewroom", "results"), nil
}
