package fsm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionHappyPath(t *testing.T) {
	s := StateIdle

	next, err := Transition(s, EventStart)
	require.NoError(t, err)
	require.Equal(t, StateStarting, next)

	next, err = Transition(next, EventCallStarted)
	require.NoError(t, err)
	require.Equal(t, StateActive, next)

	next, err = Transition(next, EventStop)
	require.NoError(t, err)
	require.Equal(t, StateEnding, next)

	next, err = Transition(next, EventCallEnded)
	require.NoError(t, err)
	require.Equal(t, StateEnded, next)
	require.True(t, Terminal(next))
}

func TestTransitionAdapterDrivenEnd(t *testing.T) {
	for _, state := range []State{StateStarting, StateActive, StateEnding} {
		next, err := Transition(state, EventCallEnded)
		require.NoError(t, err, state)
		require.Equal(t, StateEnded, next, state)
	}
}

func TestTransitionStartFailedReturnsIdle(t *testing.T) {
	next, err := Transition(StateStarting, EventStartFailed)
	require.NoError(t, err)
	require.Equal(t, StateIdle, next)
}

func TestTransitionMatrixInvalidTransitions(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		event   Event
		want    State
		wantErr bool
	}{
		{name: "idle stop invalid", state: StateIdle, event: EventStop, want: StateIdle, wantErr: true},
		{name: "idle call ended invalid", state: StateIdle, event: EventCallEnded, want: StateIdle, wantErr: true},
		{name: "idle call started invalid", state: StateIdle, event: EventCallStarted, want: StateIdle, wantErr: true},
		{name: "starting start invalid", state: StateStarting, event: EventStart, want: StateStarting, wantErr: true},
		{name: "starting stop invalid", state: StateStarting, event: EventStop, want: StateStarting, wantErr: true},
		{name: "active start invalid", state: StateActive, event: EventStart, want: StateActive, wantErr: true},
		{name: "active start failed invalid", state: StateActive, event: EventStartFailed, want: StateActive, wantErr: true},
		{name: "ending stop invalid", state: StateEnding, event: EventStop, want: StateEnding, wantErr: true},
		{name: "ended start invalid", state: StateEnded, event: EventStart, want: StateEnded, wantErr: true},
		{name: "ended call ended invalid", state: StateEnded, event: EventCallEnded, want: StateEnded, wantErr: true},
		{name: "ending call ended valid", state: StateEnding, event: EventCallEnded, want: StateEnded, wantErr: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			next, err := Transition(tc.state, tc.event)
			require.Equal(t, tc.want, next)
			if tc.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid transition")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestTransitionUnknownState(t *testing.T) {
	next, err := Transition(State("mystery"), EventStart)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown state")
	require.Equal(t, State("mystery"), next)
}
