package session

import (
	"context"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/audio"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/completion"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/feedback"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/interview"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/notify"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/transcript"
	"github.com/Papince2059/Hiremind-AIrecruiter/internal/voice"
)

// Voice is the session-facing call handle.
type Voice interface {
	Start(context.Context, voice.AssistantConfig) error
	Stop(context.Context) error
	Active() bool
	Events() <-chan voice.Event
	Close() error
}

// VoiceFactory builds one call handle per activation.
type VoiceFactory func() Voice

// Microphone confirms capture permission before a call starts.
type Microphone interface {
	Probe(context.Context) (audio.Device, error)
}

// MicrophoneFunc adapts a function to the Microphone interface.
type MicrophoneFunc func(context.Context) (audio.Device, error)

func (f MicrophoneFunc) Probe(ctx context.Context) (audio.Device, error) { return f(ctx) }

// Provisioner resolves interview metadata for an activation.
type Provisioner interface {
	Resolve(ctx context.Context, id string, nav interview.NavigationState, defaultName string) (interview.Context, interview.Source)
}

// Submitter turns the final transcript into a result record.
type Submitter interface {
	Submit(ctx context.Context, info interview.Context, duration string, turns []transcript.Turn) (interview.ResultRecord, feedback.Outcome, error)
}

// noopNotifier preserves session flow when no notifier is wired.
type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, notify.Notice) {}

// discardNavigator accepts every handoff.
var discardNavigator = completion.NavigatorFunc(func(context.Context, completion.Handoff) error { return nil })
