package session

import "errors"

var (
	// ErrNoQuestionsAvailable rejects start while the activation has no questions.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrMicrophonePermissionDenied means the microphone probe could not open a stream.
	ErrMicrophonePermissionDenied = errors.New("microphone permission denied")
	// ErrStartInProgress rejects stop while the call is still connecting.
	ErrStartInProgress = errors.New("call is still starting")
	// ErrNotRunning is returned by commands sent after the session loop exited.
	ErrNotRunning = errors.New("session loop is not running")
	// ErrNotActivated rejects start before any activation.
	ErrNotActivated = errors.New("no interview activated")
	// ErrCompletionPending rejects a new activation until the ended one has
	// delivered its completion handoff.
	ErrCompletionPending = errors.New("completion handoff still pending")
)
