package notify

import (
	"fmt"
	"os"
	"strings"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/voice"
)

type locale string

const (
	localeEnglish locale = "en"
)

// Kind identifies one user-visible session notice.
type Kind string

const (
	KindStarting            Kind = "starting"
	KindConnected           Kind = "connected"
	KindEnded               Kind = "ended"
	KindAssistantSpeaking   Kind = "assistant-speaking"
	KindCandidateTurn       Kind = "candidate-turn"
	KindMicrophoneConfirmed Kind = "microphone-confirmed"
	KindMicrophoneDenied    Kind = "microphone-denied"
	KindNoQuestions         Kind = "no-questions"
	KindVoiceError          Kind = "voice-error"
	KindStartFailed         Kind = "start-failed"
	KindFeedbackSubmitted   Kind = "feedback-submitted"
	KindFeedbackFailed      Kind = "feedback-failed"
	KindNoConversation      Kind = "no-conversation"
)

// Level is the toast severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

// Notice is one notification request. Category carries the voice error
// category for KindVoiceError and KindStartFailed; Detail carries the raw
// error text.
type Notice struct {
	Kind     Kind
	Category voice.Category
	Detail   string
}

type messages struct {
	starting            string
	connected           string
	ended               string
	assistantSpeaking   string
	candidateTurn       string
	microphoneConfirmed string
	microphoneDenied    string
	noQuestions         string
	feedbackSubmitted   string
	feedbackFailed      string
	noConversation      string

	voiceInvalidKey    string
	voiceUnauthorized  string
	voicePermission    string
	voiceOther         string
	startInvalidKey    string
	startUnauthorized  string
	startPermission    string
	startOther         string
	unknownErrorDetail string
}

func messagesFromEnv() messages {
	return localeMessages(resolveLocale(os.Getenv("LANG")))
}

func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeEnglish
}

func localeMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		fallthrough
	default:
		return messages{
			starting:            "Starting interview... Connecting to voice service...",
			connected:           "Call Connected...",
			ended:               "Interview Ended",
			assistantSpeaking:   "Assistant speaking...",
			candidateTurn:       "Your turn to speak...",
			microphoneConfirmed: "Microphone access confirmed!",
			microphoneDenied:    "Microphone access is required for the interview. Please allow microphone access and try again.",
			noQuestions:         "No questions available.",
			feedbackSubmitted:   "Feedback submitted!",
			feedbackFailed:      "Failed to submit feedback.",
			noConversation:      "No conversation data to generate feedback.",

			voiceInvalidKey:    "Voice service API key is invalid. Please contact support.",
			voiceUnauthorized:  "Voice service authentication failed. Please contact support.",
			voicePermission:    "Voice service permission denied. Check microphone access and try again.",
			voiceOther:         "Voice service error: %s",
			startInvalidKey:    "Voice service configuration issue. The voice service API key is invalid. Please contact support.",
			startUnauthorized:  "Voice service authentication failed. Please contact support.",
			startPermission:    "Microphone permission denied. Please allow microphone access and try again.",
			startOther:         "Failed to start interview: %s",
			unknownErrorDetail: "Unknown error",
		}
	}
}

// render returns the text and severity for n.
func (m messages) render(n Notice) (string, Level) {
	detail := strings.TrimSpace(n.Detail)
	if detail == "" {
		detail = m.unknownErrorDetail
	}

	switch n.Kind {
	case KindStarting:
		return m.starting, LevelInfo
	case KindConnected:
		return m.connected, LevelInfo
	case KindEnded:
		return m.ended, LevelInfo
	case KindAssistantSpeaking:
		return m.assistantSpeaking, LevelInfo
	case KindCandidateTurn:
		return m.candidateTurn, LevelInfo
	case KindMicrophoneConfirmed:
		return m.microphoneConfirmed, LevelSuccess
	case KindMicrophoneDenied:
		return m.microphoneDenied, LevelError
	case KindNoQuestions:
		return m.noQuestions, LevelError
	case KindFeedbackSubmitted:
		return m.feedbackSubmitted, LevelSuccess
	case KindFeedbackFailed:
		return m.feedbackFailed, LevelError
	case KindNoConversation:
		return m.noConversation, LevelWarn
	case KindVoiceError:
		switch n.Category {
		case voice.CategoryCredentialInvalid:
			return m.voiceInvalidKey, LevelError
		case voice.CategoryUnauthorized:
			return m.voiceUnauthorized, LevelError
		case voice.CategoryPermission:
			return m.voicePermission, LevelError
		default:
			return fmt.Sprintf(m.voiceOther, detail), LevelError
		}
	case KindStartFailed:
		switch n.Category {
		case voice.CategoryCredentialInvalid:
			return m.startInvalidKey, LevelError
		case voice.CategoryUnauthorized:
			return m.startUnauthorized, LevelError
		case voice.CategoryPermission:
			return m.startPermission, LevelError
		default:
			return fmt.Sprintf(m.startOther, detail), LevelError
		}
	default:
		return string(n.Kind), LevelInfo
	}
}
