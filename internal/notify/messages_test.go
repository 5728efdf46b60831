package notify

import (
	"testing"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/voice"
	"github.com/stretchr/testify/require"
)

func TestResolveLocaleDefaultsToEnglish(t *testing.T) {
	require.Equal(t, localeEnglish, resolveLocale("en_US.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale("fr_FR.UTF-8"))
	require.Equal(t, localeEnglish, resolveLocale(""))
}

func TestRenderClassifiedErrors(t *testing.T) {
	m := localeMessages(localeEnglish)

	tests := []struct {
		name  string
		in    Notice
		text  string
		level Level
	}{
		{"voice invalid key", Notice{Kind: KindVoiceError, Category: "invalid-credential"}, "Voice service API key is invalid. Please contact support.", LevelError},
		{"voice unauthorized", Notice{Kind: KindVoiceError, Category: "unauthorized"}, "Voice service authentication failed. Please contact support.", LevelError},
		{"voice permission", Notice{Kind: KindVoiceError, Category: voice.CategoryPermission}, "Voice service permission denied. Check microphone access and try again.", LevelError},
		{"voice other", Notice{Kind: KindVoiceError, Category: "other", Detail: "socket closed"}, "Voice service error: socket closed", LevelError},
		{"voice other without detail", Notice{Kind: KindVoiceError}, "Voice service error: Unknown error", LevelError},
		{"start invalid key", Notice{Kind: KindStartFailed, Category: "invalid-credential"}, "Voice service configuration issue. The voice service API key is invalid. Please contact support.", LevelError},
		{"start permission", Notice{Kind: KindStartFailed, Category: "permission-denied"}, "Microphone permission denied. Please allow microphone access and try again.", LevelError},
		{"start other", Notice{Kind: KindStartFailed, Detail: " boom "}, "Failed to start interview: boom", LevelError},
		{"no conversation", Notice{Kind: KindNoConversation}, "No conversation data to generate feedback.", LevelWarn},
		{"mic confirmed", Notice{Kind: KindMicrophoneConfirmed}, "Microphone access confirmed!", LevelSuccess},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			text, level := m.render(tc.in)
			require.Equal(t, tc.text, text)
			require.Equal(t, tc.level, level)
		})
	}
}
