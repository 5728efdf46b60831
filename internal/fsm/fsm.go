// Package fsm holds the pure call-state transition table for one interview activation.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateActive   State = "active"
	StateEnding   State = "ending"
	StateEnded    State = "ended"
)

const (
	EventStart       Event = "start"
	EventCallStarted Event = "call_started"
	EventStartFailed Event = "start_failed"
	EventStop        Event = "stop"
	EventCallEnded   Event = "call_ended"
)

// Transition returns the next state for event, or the current state and an
// error when the event is not accepted there. Ended is terminal.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventStart:
			return StateStarting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateStarting:
		switch event {
		case EventCallStarted:
			return StateActive, nil
		case EventStartFailed:
			return StateIdle, nil
		case EventCallEnded:
			return StateEnded, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateActive:
		switch event {
		case EventStop:
			return StateEnding, nil
		case EventCallEnded:
			return StateEnded, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateEnding:
		switch event {
		case EventCallEnded:
			return StateEnded, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateEnded:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

// Terminal reports whether no event can leave state.
func Terminal(state State) bool {
	return state == StateEnded
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
