package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Backend.URL) == "" {
		return nil, fmt.Errorf("backend.url must not be empty")
	}
	parsed, err := url.Parse(cfg.Backend.URL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("backend.url must be an absolute http(s) URL")
	}
	if cfg.Backend.TimeoutMS <= 0 {
		return nil, fmt.Errorf("backend.timeout_ms must be > 0")
	}
	if cfg.Backend.FeedbackTimeoutMS <= 0 {
		return nil, fmt.Errorf("backend.feedback_timeout_ms must be > 0")
	}

	switch cfg.Voice.Transport {
	case TransportGRPC, TransportWebSocket:
	default:
		return nil, fmt.Errorf("voice.transport must be one of: grpc, websocket")
	}
	if strings.TrimSpace(cfg.Voice.Endpoint) == "" {
		return nil, fmt.Errorf("voice.endpoint must not be empty")
	}
	if cfg.Voice.Transport == TransportWebSocket {
		endpoint, err := url.Parse(cfg.Voice.Endpoint)
		if err != nil || (endpoint.Scheme != "ws" && endpoint.Scheme != "wss") {
			return nil, fmt.Errorf("voice.endpoint must be a ws:// or wss:// URL when voice.transport=websocket")
		}
	}
	if cfg.Voice.DialTimeoutMS <= 0 {
		return nil, fmt.Errorf("voice.dial_timeout_ms must be > 0")
	}
	if strings.TrimSpace(cfg.Voice.APIKey) == "" {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("voice.api_key is empty; set %s or voice.api_key", EnvVoiceAPIKey)})
	}

	if strings.TrimSpace(cfg.Assistant.Language) == "" {
		return nil, fmt.Errorf("assistant.language must not be empty")
	}
	if strings.TrimSpace(cfg.Assistant.Model) == "" {
		return nil, fmt.Errorf("assistant.model must not be empty")
	}

	if cfg.Audio.ProbeTimeoutMS <= 0 {
		return nil, fmt.Errorf("audio.probe_timeout_ms must be > 0")
	}

	switch cfg.Notify.Backend {
	case NotifyConsole, NotifyDesktop, NotifyNone:
	case "":
		return nil, fmt.Errorf("notify.backend must not be empty")
	default:
		return nil, fmt.Errorf("notify.backend must be one of: console, desktop, none")
	}
	if cfg.Notify.Backend == NotifyDesktop && strings.TrimSpace(cfg.Notify.DesktopAppName) == "" {
		return nil, fmt.Errorf("notify.desktop_app_name must not be empty when notify.backend=desktop")
	}
	if cfg.Notify.TimeoutMS < 0 {
		return nil, fmt.Errorf("notify.timeout_ms must be >= 0")
	}
	if cfg.Notify.ErrorTimeoutMS < 0 {
		return nil, fmt.Errorf("notify.error_timeout_ms must be >= 0")
	}

	if dsn := strings.TrimSpace(cfg.Results.DatabaseURL); dsn != "" {
		if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
			return nil, fmt.Errorf("results.database_url must be a postgres:// URL")
		}
	}
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return warnings, nil
}
