package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaultsWarnOnMissingVoiceKey(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, EnvVoiceAPIKey)

	cfg := Default()
	cfg.Voice.APIKey = "key"
	warnings, err = Validate(cfg)
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty backend url", mutate: func(c *Config) { c.Backend.URL = "" }, wantErr: "backend.url"},
		{name: "relative backend url", mutate: func(c *Config) { c.Backend.URL = "api/interviews" }, wantErr: "backend.url"},
		{name: "zero backend timeout", mutate: func(c *Config) { c.Backend.TimeoutMS = 0 }, wantErr: "backend.timeout_ms"},
		{name: "zero feedback timeout", mutate: func(c *Config) { c.Backend.FeedbackTimeoutMS = 0 }, wantErr: "feedback_timeout_ms"},
		{name: "unknown transport", mutate: func(c *Config) { c.Voice.Transport = "sip" }, wantErr: "voice.transport"},
		{name: "empty endpoint", mutate: func(c *Config) { c.Voice.Endpoint = "" }, wantErr: "voice.endpoint"},
		{name: "websocket endpoint scheme", mutate: func(c *Config) {
			c.Voice.Transport = TransportWebSocket
			c.Voice.Endpoint = "http://voice.example.com"
		}, wantErr: "ws://"},
		{name: "zero dial timeout", mutate: func(c *Config) { c.Voice.DialTimeoutMS = 0 }, wantErr: "dial_timeout_ms"},
		{name: "empty language", mutate: func(c *Config) { c.Assistant.Language = "" }, wantErr: "assistant.language"},
		{name: "empty model", mutate: func(c *Config) { c.Assistant.Model = "" }, wantErr: "assistant.model"},
		{name: "zero probe timeout", mutate: func(c *Config) { c.Audio.ProbeTimeoutMS = 0 }, wantErr: "probe_timeout_ms"},
		{name: "unknown notify backend", mutate: func(c *Config) { c.Notify.Backend = "osd" }, wantErr: "notify.backend"},
		{name: "desktop without app name", mutate: func(c *Config) {
			c.Notify.Backend = NotifyDesktop
			c.Notify.DesktopAppName = ""
		}, wantErr: "desktop_app_name"},
		{name: "negative error timeout", mutate: func(c *Config) { c.Notify.ErrorTimeoutMS = -1 }, wantErr: "error_timeout_ms"},
		{name: "non postgres database url", mutate: func(c *Config) { c.Results.DatabaseURL = "mysql://x" }, wantErr: "database_url"},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseNormalizesValues(t *testing.T) {
	cfg, _, err := Parse(`
[voice]
transport = " GRPC "
api_key = " secret "

[log]
level = "WARN"
`, Default())
	require.NoError(t, err)
	require.Equal(t, TransportGRPC, cfg.Voice.Transport)
	require.Equal(t, "secret", cfg.Voice.APIKey)
	require.Equal(t, "warn", cfg.Log.Level)
}

func TestParseEmptyContentKeepsBase(t *testing.T) {
	cfg, warnings, err := Parse("", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Len(t, warnings, 1)
}
