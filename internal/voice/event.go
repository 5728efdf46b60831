// Package voice adapts a remote voice assistant gateway into typed session events.
package voice

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Papince2059/Hiremind-AIrecruiter/internal/transcript"
)

// EventKind is the internal event type delivered on Session.Events.
type EventKind string

const (
	EventCallStarted   EventKind = "call-started"
	EventCallEnded     EventKind = "call-ended"
	EventCallFailed    EventKind = "call-failed"
	EventSpeechStarted EventKind = "speech-started"
	EventSpeechEnded   EventKind = "speech-ended"
	EventTranscript    EventKind = "transcript"
	EventError         EventKind = "error"
)

// Wire message types exchanged with the gateway.
const (
	wireCallStart   = "call-start"
	wireCallEnd     = "call-end"
	wireSpeechStart = "speech-start"
	wireSpeechEnd   = "speech-end"
	wireMessage     = "message"
	wireError       = "error"

	wireStart = "start"
	wireStop  = "stop"
)

// Event is one gateway occurrence. Turns is set for EventTranscript; Err is
// set for EventError and EventCallFailed.
type Event struct {
	Kind  EventKind
	Turns []transcript.Turn
	Err   error
	// Synthetic marks a call-ended event produced locally because the stream
	// closed without the gateway sending one.
	Synthetic bool
}

// inbound is the gateway-to-client envelope.
type inbound struct {
	Type         string            `json:"type"`
	Conversation []transcript.Turn `json:"conversation"`
	Error        json.RawMessage   `json:"error"`
	Message      json.RawMessage   `json:"message"`
}

// outbound is the client-to-gateway envelope.
type outbound struct {
	Type      string           `json:"type"`
	Assistant *AssistantConfig `json:"assistant,omitempty"`
}

// decodeEvent parses one gateway message. ok is false for messages that have
// no internal meaning, such as a "message" without a conversation.
func decodeEvent(data []byte) (Event, bool, error) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Event{}, false, fmt.Errorf("decode gateway message: %w", err)
	}

	switch strings.TrimSpace(msg.Type) {
	case wireCallStart:
		return Event{Kind: EventCallStarted}, true, nil
	case wireCallEnd:
		return Event{Kind: EventCallEnded}, true, nil
	case wireSpeechStart:
		return Event{Kind: EventSpeechStarted}, true, nil
	case wireSpeechEnd:
		return Event{Kind: EventSpeechEnded}, true, nil
	case wireMessage:
		if msg.Conversation == nil {
			return Event{}, false, nil
		}
		return Event{Kind: EventTranscript, Turns: msg.Conversation}, true, nil
	case wireError:
		text := errorText(msg.Error)
		if text == "" {
			text = errorText(msg.Message)
		}
		return Event{
			Kind: EventError,
			Err:  &ServiceError{Category: ClassifyMessage(text), Message: text},
		}, true, nil
	default:
		return Event{}, false, nil
	}
}

// errorText pulls a message out of a string or {"message": ...} payload.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}

	var obj struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if strings.TrimSpace(obj.Message) != "" {
			return strings.TrimSpace(obj.Message)
		}
		if nested := errorText(obj.Error); nested != "" {
			return nested
		}
	}
	return strings.TrimSpace(string(raw))
}
