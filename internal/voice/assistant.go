package voice

import (
	"fmt"
	"strings"
)

// Providers selects the speech-to-text, voice, and language model used by the
// remote assistant.
type Providers struct {
	TranscriberProvider string
	TranscriberModel    string
	Language            string
	VoiceProvider       string
	VoiceID             string
	ModelProvider       string
	Model               string
}

// DefaultProviders is the provider selection used when nothing is configured.
func DefaultProviders() Providers {
	return Providers{
		TranscriberProvider: "deepgram",
		TranscriberModel:    "nova-2",
		Language:            "en-US",
		VoiceProvider:       "playht",
		VoiceID:             "jennifer",
		ModelProvider:       "openai",
		Model:               "gpt-4",
	}
}

// AssistantConfig is sent to the gateway to start one interview call.
type AssistantConfig struct {
	Name         string            `json:"name"`
	FirstMessage string            `json:"firstMessage"`
	Transcriber  TranscriberConfig `json:"transcriber"`
	Voice        VoiceConfig       `json:"voice"`
	Model        ModelConfig       `json:"model"`
}

type TranscriberConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type VoiceConfig struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type ModelConfig struct {
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	Messages []ModelMessage `json:"messages"`
}

type ModelMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AssistantName is the display name of the interviewer persona.
const AssistantName = "AI Recruiter"

// BuildAssistant assembles the recruiter persona for one candidate and job.
func BuildAssistant(p Providers, userName, jobTitle string, questions []string) AssistantConfig {
	defaults := DefaultProviders()
	p.TranscriberProvider = orDefault(p.TranscriberProvider, defaults.TranscriberProvider)
	p.TranscriberModel = orDefault(p.TranscriberModel, defaults.TranscriberModel)
	p.Language = orDefault(p.Language, defaults.Language)
	p.VoiceProvider = orDefault(p.VoiceProvider, defaults.VoiceProvider)
	p.VoiceID = orDefault(p.VoiceID, defaults.VoiceID)
	p.ModelProvider = orDefault(p.ModelProvider, defaults.ModelProvider)
	p.Model = orDefault(p.Model, defaults.Model)

	return AssistantConfig{
		Name:         AssistantName,
		FirstMessage: fmt.Sprintf("Hi %s, how are you? Ready for your interview on %s?", userName, jobTitle),
		Transcriber: TranscriberConfig{
			Provider: p.TranscriberProvider,
			Model:    p.TranscriberModel,
			Language: p.Language,
		},
		Voice: VoiceConfig{Provider: p.VoiceProvider, VoiceID: p.VoiceID},
		Model: ModelConfig{
			Provider: p.ModelProvider,
			Model:    p.Model,
			Messages: []ModelMessage{{Role: "system", Content: SystemPrompt(jobTitle, questions)}},
		},
	}
}

// SystemPrompt renders the interviewer instructions with a numbered question list.
func SystemPrompt(jobTitle string, questions []string) string {
	numbered := make([]string, 0, len(questions))
	for i, q := range questions {
		numbered = append(numbered, fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(q)))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI voice assistant conducting interviews for a %s position.\n", jobTitle)
	fmt.Fprintf(&b, "Begin with a friendly introduction. Ask one question at a time from: %s.\n", strings.Join(numbered, "\n"))
	b.WriteString("Offer hints if needed, provide feedback, and wrap up after 5-7 questions.\n")
	fmt.Fprintf(&b, "Keep it natural, engaging, and focused on %s.", jobTitle)
	return b.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}
