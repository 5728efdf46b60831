package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// Transport names accepted by voice.transport.
const (
	TransportGRPC      = "grpc"
	TransportWebSocket = "websocket"
)

// Notification backends accepted by notify.backend.
const (
	NotifyConsole = "console"
	NotifyDesktop = "desktop"
	NotifyNone    = "none"
)

// Parse decodes TOML content over base and validates the result.
//
// Keys the schema does not know are reported as warnings, not errors.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg, warnings, err := decode(content, base)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validatedWarnings...), nil
}

func decode(content string, base Config) (Config, []Warning, error) {
	cfg := base
	meta, err := toml.Decode(content, &cfg)
	if err != nil {
		return Config{}, nil, wrapDecodeError(err)
	}

	warnings := make([]Warning, 0)
	for _, key := range meta.Undecoded() {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("unknown config key %q ignored", key.String())})
	}

	normalize(&cfg)
	return cfg, warnings, nil
}

func wrapDecodeError(err error) error {
	var parseErr toml.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("invalid TOML at line %d: %s", parseErr.Position.Line, parseErr.Message)
	}
	return fmt.Errorf("invalid TOML: %w", err)
}

func normalize(cfg *Config) {
	cfg.Backend.URL = strings.TrimRight(strings.TrimSpace(cfg.Backend.URL), "/")
	cfg.Backend.AuthToken = strings.TrimSpace(cfg.Backend.AuthToken)
	cfg.Voice.Transport = strings.ToLower(strings.TrimSpace(cfg.Voice.Transport))
	cfg.Voice.Endpoint = strings.TrimSpace(cfg.Voice.Endpoint)
	cfg.Voice.APIKey = strings.TrimSpace(cfg.Voice.APIKey)
	cfg.Audio.Input = strings.TrimSpace(cfg.Audio.Input)
	cfg.Notify.Backend = strings.ToLower(strings.TrimSpace(cfg.Notify.Backend))
	cfg.Notify.DesktopAppName = strings.TrimSpace(cfg.Notify.DesktopAppName)
	cfg.Results.Dir = strings.TrimSpace(cfg.Results.Dir)
	cfg.Results.DatabaseURL = strings.TrimSpace(cfg.Results.DatabaseURL)
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
}
