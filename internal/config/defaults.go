package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Backend: BackendConfig{
			URL:               "http://127.0.0.1:8000",
			TimeoutMS:         10000,
			FeedbackTimeoutMS: 60000,
		},
		Voice: VoiceConfig{
			Transport:     TransportGRPC,
			Endpoint:      "127.0.0.1:50061",
			DialTimeoutMS: 3000,
		},
		Assistant: AssistantConfig{
			TranscriberProvider: "deepgram",
			TranscriberModel:    "nova-2",
			Language:            "en-US",
			VoiceProvider:       "playht",
			VoiceID:             "jennifer",
			ModelProvider:       "openai",
			Model:               "gpt-4",
		},
		Audio: AudioConfig{
			Input:          "default",
			ProbeTimeoutMS: 2000,
		},
		Notify: NotifyConfig{
			Backend:        NotifyConsole,
			DesktopAppName: "interviewroom",
			TimeoutMS:      3000,
			ErrorTimeoutMS: 6000,
			SoundEnable:    true,
		},
		Results: ResultsConfig{
			Stdout: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
