// Package config resolves, parses, validates, and defaults interviewroom configuration.
package config

import "time"

// Config is the fully materialized runtime configuration.
type Config struct {
	Backend   BackendConfig   `toml:"backend"`
	Voice     VoiceConfig     `toml:"voice"`
	Assistant AssistantConfig `toml:"assistant"`
	Audio     AudioConfig     `toml:"audio"`
	Notify    NotifyConfig    `toml:"notify"`
	Results   ResultsConfig   `toml:"results"`
	Log       LogConfig       `toml:"log"`
}

// BackendConfig points at the interview API.
type BackendConfig struct {
	URL               string `toml:"url"`
	AuthToken         string `toml:"auth_token"`
	TimeoutMS         int    `toml:"timeout_ms"`
	FeedbackTimeoutMS int    `toml:"feedback_timeout_ms"`
}

// VoiceConfig selects the voice gateway transport and credential.
type VoiceConfig struct {
	Transport     string `toml:"transport"`
	Endpoint      string `toml:"endpoint"`
	APIKey        string `toml:"api_key"`
	DialTimeoutMS int    `toml:"dial_timeout_ms"`
}

// AssistantConfig selects the providers the remote assistant runs on.
type AssistantConfig struct {
	TranscriberProvider string `toml:"transcriber_provider"`
	TranscriberModel    string `toml:"transcriber_model"`
	Language            string `toml:"language"`
	VoiceProvider       string `toml:"voice_provider"`
	VoiceID             string `toml:"voice_id"`
	ModelProvider       string `toml:"model_provider"`
	Model               string `toml:"model"`
}

// AudioConfig controls microphone selection and the permission probe.
type AudioConfig struct {
	Input          string `toml:"input"`
	ProbeTimeoutMS int    `toml:"probe_timeout_ms"`
}

// NotifyConfig controls toast delivery and audio cue behavior.
type NotifyConfig struct {
	Backend           string `toml:"backend"`
	DesktopAppName    string `toml:"desktop_app_name"`
	TimeoutMS         int    `toml:"timeout_ms"`
	ErrorTimeoutMS    int    `toml:"error_timeout_ms"`
	SoundEnable       bool   `toml:"sound_enable"`
	SoundStartFile    string `toml:"sound_start_file"`
	SoundStopFile     string `toml:"sound_stop_file"`
	SoundCompleteFile string `toml:"sound_complete_file"`
	SoundCancelFile   string `toml:"sound_cancel_file"`
}

// ResultsConfig controls where completion handoffs are delivered.
type ResultsConfig struct {
	Stdout      bool   `toml:"stdout"`
	Dir         string `toml:"dir"`
	DatabaseURL string `toml:"database_url"`
}

// LogConfig controls runtime log verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// Timeout is the per-request backend timeout.
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// FeedbackTimeout bounds one feedback submission.
func (c BackendConfig) FeedbackTimeout() time.Duration {
	return time.Duration(c.FeedbackTimeoutMS) * time.Millisecond
}

// DialTimeout bounds gateway connection readiness.
func (c VoiceConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutMS) * time.Millisecond
}

// ProbeTimeout bounds the microphone permission probe.
func (c AudioConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMS) * time.Millisecond
}
